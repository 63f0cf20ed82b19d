package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// Classify is the policy shared by every outbound call of the search path.
// A caller that gave up (cancelled request, deadline) neither retries nor
// counts against the breaker. Errors already marked domain.ErrTemporary, or
// reported by transient, are retried. Everything else fails at once but
// still counts as a failure of the dependency.
func Classify(err error, transient func(error) bool) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err), domain.IsKind(err, domain.ErrTemporary):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case transient != nil && transient(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return ErrorClassification{RecordFailure: true}
	}
}

// Temporary marks err as domain.ErrTemporary when classifier says a later
// attempt may succeed, so the HTTP layer can answer 503 instead of 500.
func Temporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if IsCircuitOpen(err) || classifier(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
