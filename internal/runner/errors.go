package runner

import (
	"errors"
	"fmt"

	"extci/internal/models"
)

var (
	ErrProvisioning = errors.New("provisioning failed")
	ErrCompile      = errors.New("compile failed")
	ErrTest         = errors.New("test failed")
)

// StepError is the failure of one job step. It matches both its category
// sentinel and the underlying cause with errors.Is.
type StepError struct {
	Kind     models.FailureKind
	Step     string
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", sentinel(e.Kind), e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s exited with status %d", sentinel(e.Kind), e.Step, e.ExitCode)
}

func (e *StepError) Unwrap() []error {
	errs := []error{sentinel(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func sentinel(kind models.FailureKind) error {
	switch kind {
	case models.FailureCompile:
		return ErrCompile
	case models.FailureTest:
		return ErrTest
	default:
		return ErrProvisioning
	}
}

func failureKind(kind models.StepKind) models.FailureKind {
	switch kind {
	case models.StepKindCompile:
		return models.FailureCompile
	case models.StepKindTest:
		return models.FailureTest
	default:
		return models.FailureProvisioning
	}
}
