package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalService = errors.New("external service error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
	ErrCatastrophic    = errors.New("catastrophic failure")
)

// Kind names the failure class of an error for logs and the run journal.
type Kind string

const (
	KindNone            Kind = ""
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindConfiguration   Kind = "configuration"
	KindTimeout         Kind = "timeout"
	KindExternalService Kind = "external_service"
	KindCatastrophic    Kind = "catastrophic"
	KindTransient       Kind = "transient"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto its failure kind. Unmarked errors are treated as
// transient so the affected row is retried on the next run.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCatastrophic):
		return KindCatastrophic
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrExternalService):
		return KindExternalService
	default:
		return KindTransient
	}
}

// ScopeWidening reports whether the error should abort the enclosing phase
// instead of being contained at row level.
func ScopeWidening(err error) bool {
	kind := Classify(err)
	return kind == KindConfiguration || kind == KindCatastrophic
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
