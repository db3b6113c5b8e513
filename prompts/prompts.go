// Package prompts holds the system/user template pair used to frame
// retrieval context for the generation provider, plus per-user overrides.
package prompts

import (
	"fmt"
	"regexp"
)

// DefaultSystemTemplate and DefaultUserTemplate are the process-wide
// defaults applied until a user overrides them.
const (
	DefaultSystemTemplate = "Use the following context to answer a users question. " +
		"If you cannot find the answer in the context, say you don't know the answer."

	DefaultUserTemplate = "Context:\n{context}\n\nQuestion:\n{question}\n"
)

// Pair couples a system-role template with a user-role template.
type Pair struct {
	System string `json:"system_template"`
	User   string `json:"user_template"`
}

func Default() Pair {
	return Pair{System: DefaultSystemTemplate, User: DefaultUserTemplate}
}

// RenderError reports a placeholder referenced by a template with no entry
// in the substitution map. Rendering never silently drops placeholders.
type RenderError struct {
	Placeholder string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("prompt template references %q but no substitution was supplied", e.Placeholder)
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render substitutes every {name} placeholder in template from vars. It
// fails with a RenderError on the first placeholder missing from vars.
func Render(template string, vars map[string]string) (string, error) {
	var missing *RenderError
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			if missing == nil {
				missing = &RenderError{Placeholder: name}
			}
			return match
		}
		return value
	})
	if missing != nil {
		return "", missing
	}
	return rendered, nil
}

// Render renders both halves of the pair against the same substitution map.
func (p Pair) Render(vars map[string]string) (system, user string, err error) {
	system, err = Render(p.System, vars)
	if err != nil {
		return "", "", err
	}
	user, err = Render(p.User, vars)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}
