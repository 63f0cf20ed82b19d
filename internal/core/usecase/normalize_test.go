package usecase

import (
	"testing"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

func TestNormalizeRowsConvertsKeysAndValues(t *testing.T) {
	rows := []domain.Row{{
		{Name: "id", Value: int64(1)},
		{Name: "product_image_uri", Value: "gs://bucket/img.png"},
		{Name: "retail_price", Value: 19.99},
		{Name: "distance", Value: []byte("0.123456789")},
		{Name: "total_count", Value: int64(12)},
	}}

	out, total, err := NormalizeRows(rows)
	if err != nil {
		t.Fatalf("normalize rows: %v", err)
	}
	if total != 12 {
		t.Fatalf("expected total 12, got %d", total)
	}
	names := out[0].Names()
	want := []string{"id", "productImageUri", "retailPrice", "distance"}
	if len(names) != len(want) {
		t.Fatalf("unexpected columns %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected columns %v", names)
		}
	}
	if v, _ := out[0].Get("distance"); v != 0.123457 {
		t.Fatalf("expected rounded distance, got %v", v)
	}
}

func TestNormalizeRowsRejectsKeyCollision(t *testing.T) {
	rows := []domain.Row{{{Name: "retail_price", Value: 1}, {Name: "retailPrice", Value: 2}}}
	_, _, err := NormalizeRows(rows)
	if !domain.IsKind(err, domain.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestNormalizeRowsEmpty(t *testing.T) {
	out, total, err := NormalizeRows(nil)
	if err != nil || total != 0 || out == nil || len(out) != 0 {
		t.Fatalf("unexpected result out=%#v total=%d err=%v", out, total, err)
	}
}

func TestPublicImageURL(t *testing.T) {
	if got := PublicImageURL("https://example.com/a.png"); got != "https://example.com/a.png" {
		t.Fatalf("non gs uri must be unchanged, got %s", got)
	}
	if got := CamelCase("fts_rank_score"); got != "ftsRankScore" {
		t.Fatalf("unexpected camel case %s", got)
	}
}
