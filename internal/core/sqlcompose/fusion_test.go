package sqlcompose

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

var fusionRankColumns = map[domain.Signal]string{
	domain.SignalVector:   "v.vector_rank",
	domain.SignalFullText: "f.fts_rank",
	domain.SignalLexical:  "l.sql_rank",
}

// fusedScore evaluates the SQL terms fusedCandidates emits for the given
// 1-based ranks. A signal without a rank is the NULL rank of a missing
// FULL OUTER JOIN side, which COALESCE turns into 0.
func fusedScore(t *testing.T, w FusionWeights, ranks map[domain.Signal]int) float64 {
	t.Helper()
	var score float64
	for signal, column := range fusionRankColumns {
		var k int
		term := w.term(signal, column)
		if _, err := fmt.Sscanf(term, "COALESCE(1.0 / (%d + "+column+"), 0.0)", &k); err != nil {
			t.Fatalf("unexpected fusion term %q: %v", term, err)
		}
		if rank := ranks[signal]; rank > 0 {
			score += 1.0 / float64(k+rank)
		}
	}
	return score
}

func TestFusedCandidatesSumsAllThreeSignals(t *testing.T) {
	sql := fusedCandidates(DefaultFusionWeights())
	want := "(COALESCE(1.0 / (60 + v.vector_rank), 0.0) + COALESCE(1.0 / (60 + f.fts_rank), 0.0) + COALESCE(1.0 / (60 + l.sql_rank), 0.0))::float8 AS rrf_score"
	if !strings.Contains(sql, want) {
		t.Fatalf("expected summed rrf terms:\n%s", sql)
	}
	for _, join := range []string{"FROM semantic_candidates v", "FULL OUTER JOIN fulltext_candidates f ON f.id = v.id", "FULL OUTER JOIN lexical_candidates l ON l.id = COALESCE(v.id, f.id)"} {
		if !strings.Contains(sql, join) {
			t.Fatalf("expected %q in fused candidates:\n%s", join, sql)
		}
	}
}

func TestFusedScoreAllSignalsBeatsSingleSignal(t *testing.T) {
	w := DefaultFusionWeights()
	all := fusedScore(t, w, map[domain.Signal]int{
		domain.SignalVector:   1,
		domain.SignalFullText: 1,
		domain.SignalLexical:  1,
	})
	single := fusedScore(t, w, map[domain.Signal]int{domain.SignalVector: 1})
	if all <= single {
		t.Fatalf("expected item found by all signals to outrank single signal: %f <= %f", all, single)
	}
	if want := 3.0 / 61.0; all < want-1e-12 || all > want+1e-12 {
		t.Fatalf("expected %f, got %f", want, all)
	}
}

func TestFusedScoreIsMonotonicInRank(t *testing.T) {
	w := DefaultFusionWeights()
	prev := fusedScore(t, w, map[domain.Signal]int{domain.SignalFullText: 1})
	for rank := 2; rank <= 40; rank++ {
		cur := fusedScore(t, w, map[domain.Signal]int{domain.SignalFullText: rank})
		if cur >= prev {
			t.Fatalf("score at rank %d (%f) not below rank %d (%f)", rank, cur, rank-1, prev)
		}
		prev = cur
	}
}

func TestFusionOffsetsAreClampedInEmittedSQL(t *testing.T) {
	w := FusionWeights{K: 60, Offsets: map[domain.Signal]int{domain.SignalLexical: -100, domain.SignalVector: -10}}
	if got := w.term(domain.SignalLexical, "l.sql_rank"); got != "COALESCE(1.0 / (0 + l.sql_rank), 0.0)" {
		t.Fatalf("expected clamped lexical term, got %q", got)
	}
	if got := w.term(domain.SignalVector, "v.vector_rank"); got != "COALESCE(1.0 / (50 + v.vector_rank), 0.0)" {
		t.Fatalf("expected offset vector term, got %q", got)
	}
	if score := fusedScore(t, w, map[domain.Signal]int{domain.SignalLexical: 1}); score != 1 {
		t.Fatalf("expected score 1 for rank 1 with k=0, got %f", score)
	}
	if got := (FusionWeights{}).term(domain.SignalFullText, "f.fts_rank"); got != "COALESCE(1.0 / (60 + f.fts_rank), 0.0)" {
		t.Fatalf("expected default k 60, got %q", got)
	}
}

func TestSanitizeVectorTerm(t *testing.T) {
	got := SanitizeVectorTerm(`  "warm"   winter-jacket  kid's `)
	if got != "warm winterjacket kids" {
		t.Fatalf("unexpected sanitized term %q", got)
	}
	if LexicalPattern(" coach  purse ") != "%coach%purse%" {
		t.Fatalf("unexpected lexical pattern %q", LexicalPattern(" coach  purse "))
	}
}
