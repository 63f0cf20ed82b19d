package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

func TestEncodeSearchEventRoundTripsThroughDecode(t *testing.T) {
	event := domain.SearchEvent{
		ID:         "evt-1",
		Strategy:   domain.StrategyHybrid,
		Term:       "denim",
		Facets:     domain.SelectedFacets{domain.FacetBrand: {"Levi's"}},
		Rows:       12,
		TotalCount: 40,
		At:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	msg, err := encodeSearchEvent("catalog.search.executed", event)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if msg.Header.Get(nats.MsgIdHdr) != "evt-1" || msg.Header.Get(headerStrategy) != "hybrid" {
		t.Fatalf("unexpected headers %v", msg.Header)
	}

	decoded, err := decodeSearchEvent(msg.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Strategy != domain.StrategyHybrid || decoded.Facets.Values(domain.FacetBrand)[0] != "Levi's" || !decoded.At.Equal(event.At) {
		t.Fatalf("unexpected decoded event %#v", decoded)
	}
}

func TestDecodeSearchEventRejectsMissingID(t *testing.T) {
	if _, err := decodeSearchEvent([]byte(`{"strategy":"lexical"}`)); err == nil {
		t.Fatalf("expected error for event without id")
	}
	if _, err := decodeSearchEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}

func TestClassifySearchEventError(t *testing.T) {
	if class := classifySearchEventError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !class.Retryable {
		t.Fatalf("closed connection must be retryable")
	}
	if class := classifySearchEventError(fmt.Errorf("publish: %w", nats.ErrReconnectBufExceeded)); !class.Retryable {
		t.Fatalf("full reconnect buffer is a broker outage")
	}
	if class := classifySearchEventError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must not retry or trip the breaker")
	}
	if class := classifySearchEventError(nats.ErrMaxPayload); class.Retryable || !class.RecordFailure {
		t.Fatalf("oversized event must fail without retry, got %#v", class)
	}
}
