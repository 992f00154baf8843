package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Constraint is a named boolean CEL expression over the "record" variable.
type Constraint struct {
	Name       string
	Expression string
}

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// ValidateConstraintExpression reports whether expression compiles to a
// boolean over record.
func (e *Evaluator) ValidateConstraintExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

func (e *Evaluator) compile(expression string) (cel.Program, error) {
	ast, iss := e.env.Compile(expression)
	if err := iss.Err(); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression yields %v, want bool", ast.OutputType())
	}
	return e.env.Program(ast, cel.InterruptCheckFrequency(100))
}

type compiledConstraint struct {
	name    string
	program cel.Program
}

// Schema is a compiled, ordered set of constraints. Safe for concurrent use.
type Schema struct {
	constraints []compiledConstraint
}

// CompileSchema compiles every constraint up front so a bad expression fails at startup.
func (e *Evaluator) CompileSchema(constraints []Constraint) (*Schema, error) {
	schema := &Schema{constraints: make([]compiledConstraint, 0, len(constraints))}
	for _, c := range constraints {
		program, err := e.compile(c.Expression)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Name, err)
		}
		schema.constraints = append(schema.constraints, compiledConstraint{name: c.Name, program: program})
	}
	return schema, nil
}

// ViolationError names the first constraint a record failed.
type ViolationError struct {
	Constraint string
	Cause      error
}

func (e *ViolationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("constraint %q violated: %v", e.Constraint, e.Cause)
	}
	return fmt.Sprintf("constraint %q violated", e.Constraint)
}

func (e *ViolationError) Unwrap() error {
	return e.Cause
}

// Check evaluates constraints in order and returns a *ViolationError for the first failure.
// An evaluation error counts as a violation.
func (s *Schema) Check(ctx context.Context, record map[string]interface{}) error {
	vars := map[string]interface{}{
		"record": record,
	}

	for _, c := range s.constraints {
		result, _, err := c.program.ContextEval(ctx, vars)
		if err != nil {
			return &ViolationError{Constraint: c.name, Cause: err}
		}

		ok, isBool := result.Value().(bool)
		if !isBool || !ok {
			return &ViolationError{Constraint: c.name}
		}
	}
	return nil
}

func (s *Schema) Len() int {
	return len(s.constraints)
}
