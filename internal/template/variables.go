// Package template provides {{variable}} substitution for notification
// subject and body templates.
package template

import (
	"fmt"
	"regexp"
)

var (
	// variablePattern matches {{variable_name}} with optional whitespace.
	variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	// validNamePattern validates variable names.
	validNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Substitute replaces {{variable}} placeholders with the given values.
// It returns an error if the template references an undefined variable or
// a supplied variable has an invalid name.
func Substitute(tpl string, vars map[string]string) (string, error) {
	for name := range vars {
		if !validNamePattern.MatchString(name) {
			return "", fmt.Errorf("invalid variable name: %s", name)
		}
	}

	matches := variablePattern.FindAllStringSubmatch(tpl, -1)
	if len(matches) == 0 {
		return tpl, nil
	}
	for _, match := range matches {
		if _, exists := vars[match[1]]; !exists {
			return "", fmt.Errorf("undefined variable: {{%s}}", match[1])
		}
	}

	result := variablePattern.ReplaceAllStringFunc(tpl, func(match string) string {
		submatches := variablePattern.FindStringSubmatch(match)
		if len(submatches) != 2 {
			return match
		}
		return vars[submatches[1]]
	})
	return result, nil
}

// Names returns the variable names referenced by a template, in order of
// first appearance.
func Names(tpl string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, match := range variablePattern.FindAllStringSubmatch(tpl, -1) {
		if _, ok := seen[match[1]]; ok {
			continue
		}
		seen[match[1]] = struct{}{}
		names = append(names, match[1])
	}
	return names
}
