package model

import (
	"errors"
	"fmt"
)

// Error kinds. Only ErrStructural aborts a run; the others are scoped to one
// record or one document.
var (
	ErrStructural     = errors.New("structural parse error")
	ErrValidation     = errors.New("validation error")
	ErrDownload       = errors.New("download error")
	ErrAnalysis       = errors.New("analysis error")
	ErrClassification = errors.New("classification error")
)

// Structuralf wraps a message as a structural parse error
func Structuralf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, a...))
}

// Validationf wraps a message as a validation error
func Validationf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

// Analysisf wraps a message as an analysis error
func Analysisf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAnalysis, fmt.Sprintf(format, a...))
}

// IsFatal reports whether err must terminate the run
func IsFatal(err error) bool {
	return errors.Is(err, ErrStructural)
}

// ProblemKind classifies a recorded per-item problem
type ProblemKind string

const (
	ProblemStructural     ProblemKind = "structural"
	ProblemValidation     ProblemKind = "validation"
	ProblemDownload       ProblemKind = "download"
	ProblemAnalysis       ProblemKind = "analysis"
	ProblemClassification ProblemKind = "classification"
	ProblemOther          ProblemKind = "other"
)

// KindOf maps an error onto the problem taxonomy
func KindOf(err error) ProblemKind {
	switch {
	case errors.Is(err, ErrStructural):
		return ProblemStructural
	case errors.Is(err, ErrValidation):
		return ProblemValidation
	case errors.Is(err, ErrDownload):
		return ProblemDownload
	case errors.Is(err, ErrAnalysis):
		return ProblemAnalysis
	case errors.Is(err, ErrClassification):
		return ProblemClassification
	default:
		return ProblemOther
	}
}
