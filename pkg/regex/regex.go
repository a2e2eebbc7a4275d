package regex

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Pattern is a compiled case-insensitive expression.
type Pattern struct {
	Expression *regexp2.Regexp
}

func Compile(pattern string) (*Pattern, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile regex %q: %w", pattern, err)
	}

	return &Pattern{Expression: re}, nil
}

func Check(s string, p *Pattern) (bool, error) {
	match, err := p.Expression.MatchString(s)
	if err != nil {
		return false, fmt.Errorf("match regex %q: %w", p.Expression.String(), err)
	}

	return match, nil
}

// CheckAny reports whether s matches at least one pattern.
func CheckAny(s string, patterns []*Pattern) (bool, error) {
	for _, p := range patterns {
		match, err := Check(s, p)
		if err != nil {
			return false, err
		}

		if match {
			return true, nil
		}
	}

	return false, nil
}
