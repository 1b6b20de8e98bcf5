package prompts

import "fmt"

// Build returns the prompt for a reviewer role with input interpolated verbatim.
// Roles without a dedicated template get the generic review template; callers
// that must not fall back check their roles with CheckRoles first.
func Build(role, input string) string {
	template, err := Template(role)
	if err != nil {
		all, loadErr := load()
		if loadErr != nil {
			// Embedded templates are unparsable.
			panic(fmt.Sprintf("prompts: %v", loadErr))
		}
		template = all[fallbackKey]
	}
	return render(template, input)
}
