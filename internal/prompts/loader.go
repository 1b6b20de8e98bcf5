// Package prompts holds the reviewer prompt templates, embedded at compile
// time and keyed by reviewer role.
package prompts

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ReviewFile is the embedded template file, one entry per reviewer role.
const ReviewFile = "review.json"

// CodePlaceholder marks where the code under review is inserted.
const CodePlaceholder = "{{.Code}}"

// fallbackKey holds the generic template used for roles without their own.
const fallbackKey = "default"

// ErrNoTemplate is matched by errors.Is when a role has no dedicated template.
var ErrNoTemplate = errors.New("no prompt template")

//go:embed review.json
var reviewJSON []byte

var (
	loadOnce  sync.Once
	templates map[string]string
	loadErr   error
)

// MissingTemplateError lists roles that would fall back to the generic template
type MissingTemplateError struct {
	Roles []string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("%v in %s for role(s) %s", ErrNoTemplate, ReviewFile, strings.Join(e.Roles, ", "))
}

// Is reports whether target is ErrNoTemplate.
func (e *MissingTemplateError) Is(target error) bool {
	return target == ErrNoTemplate
}

// load parses the embedded templates once. Every template must contain the
// code placeholder, otherwise the reviewer would never see the code.
func load() (map[string]string, error) {
	loadOnce.Do(func() {
		templates, loadErr = parseTemplates(reviewJSON)
	})
	return templates, loadErr
}

func parseTemplates(data []byte) (map[string]string, error) {
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ReviewFile, err)
	}
	if _, ok := parsed[fallbackKey]; !ok {
		return nil, fmt.Errorf("%s has no %q template", ReviewFile, fallbackKey)
	}
	for role, tmpl := range parsed {
		if !strings.Contains(tmpl, CodePlaceholder) {
			return nil, fmt.Errorf("template %q in %s does not contain %s", role, ReviewFile, CodePlaceholder)
		}
	}
	return parsed, nil
}

// Template returns the dedicated template for role.
func Template(role string) (string, error) {
	all, err := load()
	if err != nil {
		return "", err
	}
	tmpl, ok := all[role]
	if !ok || role == fallbackKey {
		return "", &MissingTemplateError{Roles: []string{role}}
	}
	return tmpl, nil
}

// Roles returns the roles that have a dedicated template, sorted.
func Roles() []string {
	all, err := load()
	if err != nil {
		return nil
	}
	roles := make([]string, 0, len(all))
	for role := range all {
		if role != fallbackKey {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	return roles
}

// CheckRoles returns a *MissingTemplateError naming every role in roles that
// has no dedicated template.
func CheckRoles(roles ...string) error {
	if _, err := load(); err != nil {
		return err
	}
	known := make(map[string]bool)
	for _, r := range Roles() {
		known[r] = true
	}
	var missing []string
	for _, r := range roles {
		if !known[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return &MissingTemplateError{Roles: missing}
	}
	return nil
}

// render substitutes input for the placeholder. Placeholders inside input are
// left alone.
func render(template, input string) string {
	return strings.ReplaceAll(template, CodePlaceholder, input)
}
