package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ContactEnv defines the variables available to moderation rule expressions.
type ContactEnv struct {
	Name    string `expr:"name"`
	Email   string `expr:"email"`
	Subject string `expr:"subject"`
	Message string `expr:"message"`
	Persona string `expr:"persona"`
}

// ModerationRule is a compiled expression that rejects a message when it evaluates to true.
type ModerationRule struct {
	program *vm.Program
	Name    string
	Source  string
}

// CompileModerationRule compiles expression against ContactEnv.
func CompileModerationRule(name, expression string) (ModerationRule, error) {
	program, err := expr.Compile(expression,
		expr.Env(ContactEnv{}),
		expr.AsBool())
	if err != nil {
		return ModerationRule{}, fmt.Errorf("invalid moderation rule %q: %w", name, err)
	}
	return ModerationRule{Name: name, Source: expression, program: program}, nil
}

// ContactFilter applies moderation rules to contact submissions.
type ContactFilter struct {
	rules []ModerationRule
}

// NewContactFilter creates a filter with the given rules. No rules accepts everything.
func NewContactFilter(rules ...ModerationRule) *ContactFilter {
	return &ContactFilter{rules: rules}
}

// Accept evaluates every rule in order and reports the first one that rejects env.
// A rule that fails to evaluate rejects the message.
func (f *ContactFilter) Accept(env ContactEnv) (bool, string) {
	for _, rule := range f.rules {
		output, err := expr.Run(rule.program, env)
		if err != nil {
			return false, fmt.Sprintf("%s (evaluation error: %v)", rule.Name, err)
		}

		reject, ok := output.(bool)
		if !ok {
			return false, fmt.Sprintf("%s (did not return boolean: %v)", rule.Name, output)
		}
		if reject {
			return false, rule.Name
		}
	}
	return true, ""
}
