package workflow

import (
	"fmt"
)

// StepError wraps the failure of a single step.
type StepError struct {
	Step  string
	Skill string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step '%s' (skill '%s') failed: %v", e.Step, e.Skill, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// UnresolvedVariableError reports a step input reference that neither a
// workflow variable, a caller argument nor an earlier step output binds.
type UnresolvedVariableError struct {
	Step      string
	Reference string
}

func (e *UnresolvedVariableError) Error() string {
	return fmt.Sprintf("step '%s': undefined variable '${%s}' in input", e.Step, e.Reference)
}
