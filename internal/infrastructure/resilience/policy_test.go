package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

func TestQueryEmbeddingConfigKeepsBackoffShort(t *testing.T) {
	cfg := QueryEmbeddingConfig()
	if cfg.RetryMaxAttempts != 2 {
		t.Fatalf("expected a single retry, got %d attempts", cfg.RetryMaxAttempts)
	}
	if got := cfg.WorstCaseBackoff(); got != 50*time.Millisecond {
		t.Fatalf("expected 50ms worst case backoff, got %s", got)
	}
}

func TestWorstCaseBackoffCapsEachWait(t *testing.T) {
	cfg := Config{
		RetryMaxAttempts:    4,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     150 * time.Millisecond,
		RetryMultiplier:     2,
	}
	// 100ms, then 150ms twice.
	if got := cfg.WorstCaseBackoff(); got != 400*time.Millisecond {
		t.Fatalf("expected 400ms, got %s", got)
	}
}

func TestBreakerOnlyConfigsNeverRetry(t *testing.T) {
	for name, cfg := range map[string]Config{
		"in database embedding": InDatabaseEmbeddingConfig(),
		"event publish":         EventPublishConfig(),
	} {
		if cfg.RetryMaxAttempts != 1 || !cfg.BreakerEnabled {
			t.Fatalf("%s: expected breaker without retries, got %#v", name, cfg)
		}
		if got := cfg.WorstCaseBackoff(); got != 0 {
			t.Fatalf("%s: expected no backoff, got %s", name, got)
		}

		exec := NewExecutor(cfg)
		attempts := 0
		err := exec.Execute(context.Background(), "alloydb.embed_text", func(context.Context) error {
			attempts++
			return domain.WrapError(domain.ErrTemporary, "embed text", errors.New("model unavailable"))
		}, func(err error) ErrorClassification { return Classify(err, nil) })
		if err == nil || attempts != 1 {
			t.Fatalf("%s: expected one failing attempt, got attempts=%d err=%v", name, attempts, err)
		}
	}
}

func TestClassify(t *testing.T) {
	errTransient := errors.New("connection reset")
	transient := func(err error) bool { return errors.Is(err, errTransient) }

	cases := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, ErrorClassification{}},
		{"cancelled request", fmt.Errorf("embed: %w", context.Canceled), ErrorClassification{}},
		{"deadline wrapped as temporary", domain.WrapError(domain.ErrTemporary, "embed text", context.DeadlineExceeded), ErrorClassification{}},
		{"temporary", domain.WrapError(domain.ErrTemporary, "embed text", errors.New("quota")), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"open breaker", gobreaker.ErrOpenState, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"transient", fmt.Errorf("publish: %w", errTransient), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"permanent", errors.New("bad payload"), ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := Classify(tc.err, transient); got != tc.want {
			t.Fatalf("%s: expected %#v, got %#v", tc.name, tc.want, got)
		}
	}
}

func TestTemporaryMarksOnlyRecoverableErrors(t *testing.T) {
	classifier := func(err error) ErrorClassification { return Classify(err, nil) }

	if err := Temporary("publish search event", gobreaker.ErrOpenState, classifier); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open breaker to be temporary, got %v", err)
	}
	plain := errors.New("payload too large")
	if got := Temporary("publish search event", plain, classifier); got != plain {
		t.Fatalf("expected permanent error unchanged, got %v", got)
	}
	if Temporary("publish search event", nil, classifier) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
