package expression

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/autobrr/contentdir/pkg/content"
)

type CompiledExpression struct {
	Program *vm.Program
	Text    string
}

// Compile checks text against Env and requires a boolean result.
func Compile(text string) (*CompiledExpression, error) {
	program, err := expr.Compile(text, expr.Env(&Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", text, err)
	}

	return &CompiledExpression{Program: program, Text: text}, nil
}

// CompileAll compiles every non-blank expression.
func CompileAll(texts []string) ([]CompiledExpression, error) {
	out := make([]CompiledExpression, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}

		c, err := Compile(text)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}

	return out, nil
}

func CheckFileSingleMatch(ctx context.Context, s content.Snapshot, expressions []CompiledExpression) (bool, error) {
	match, _, err := CheckFileSingleMatchWithReason(ctx, s, expressions)
	return match, err
}

func CheckFileSingleMatchWithReason(_ context.Context, s content.Snapshot, expressions []CompiledExpression) (bool, string, error) {
	env := newEnv(s)

	for _, expression := range expressions {
		match, err := run(expression, env)
		if err != nil {
			return false, "", err
		}

		if match {
			return true, expression.Text, nil
		}
	}

	return false, "", nil
}

func CheckFileAllMatch(_ context.Context, s content.Snapshot, expressions []CompiledExpression) (bool, []string, error) {
	env := newEnv(s)
	var failedExpressions []string

	for _, expression := range expressions {
		match, err := run(expression, env)
		if err != nil {
			return false, nil, err
		}

		if !match {
			failedExpressions = append(failedExpressions, expression.Text)
		}
	}

	if len(failedExpressions) > 0 {
		return false, failedExpressions, nil
	}

	return true, nil, nil
}

// Match is a convenience for a single optional filter; a nil filter matches everything.
func (c *CompiledExpression) Match(_ context.Context, s content.Snapshot) (bool, error) {
	if c == nil {
		return true, nil
	}

	return run(*c, newEnv(s))
}

func run(expression CompiledExpression, env *Env) (bool, error) {
	result, err := expr.Run(expression.Program, env)
	if err != nil {
		return false, fmt.Errorf("check expression: %w", err)
	}

	match, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, expected bool", expression.Text, result)
	}

	return match, nil
}
