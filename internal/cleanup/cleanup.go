// Package cleanup collapses doubled statement terminators in source files.
package cleanup

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/code-reviewer/internal/types"
)

// DefaultTargets are the files the cleanup pass touches when none are given.
var DefaultTargets = []string{"App.tsx", "shim.js", "index.js"}

// Store is the subset of artifact storage the cleanup pass needs.
type Store interface {
	Exists(name string) bool
	Read(name string) (types.Artifact, error)
	Write(name, text string) (string, error)
}

// Result describes what happened to one target
type Result struct {
	Target   string
	Found    bool
	Replaced int
	Err      error
}

// Collapse replaces ";;" with ";" until none remain, so applying it to its
// own output changes nothing.
func Collapse(text string) string {
	for strings.Contains(text, ";;") {
		text = strings.ReplaceAll(text, ";;", ";")
	}
	return text
}

// Run cleans every existing target in place and reports each one to out.
// Missing targets are skipped; a failing target does not stop the others.
func Run(store Store, targets []string, out io.Writer) []Result {
	_, _ = fmt.Fprintln(out, "--- [IA SYNTAXE] : Nettoyage des imports et des points-virgules ---")

	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		res := Result{Target: target}
		if !store.Exists(target) {
			results = append(results, res)
			continue
		}
		res.Found = true

		art, err := store.Read(target)
		if err != nil {
			res.Err = err
			_, _ = fmt.Fprintf(out, "[ERREUR] %s: %v\n", target, err)
			results = append(results, res)
			continue
		}

		cleaned := Collapse(art.Body)
		res.Replaced = len(art.Body) - len(cleaned)
		if _, err := store.Write(target, cleaned); err != nil {
			res.Err = err
			_, _ = fmt.Fprintf(out, "[ERREUR] %s: %v\n", target, err)
			results = append(results, res)
			continue
		}

		_, _ = fmt.Fprintf(out, "[OK] %s analysé.\n", target)
		results = append(results, res)
	}
	return results
}
