package sqlcompose

import (
	"fmt"
	"strconv"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

const defaultRRFK = 60

// FusionWeights parameterizes Reciprocal Rank Fusion:
//
//	score(item) = sum over signals s containing item of 1 / (K + Offsets[s] + rank_s(item))
//
// Offsets let a signal weigh more (negative) or less (positive) without
// changing the shape of the formula.
type FusionWeights struct {
	K       int
	Offsets map[domain.Signal]int
}

func DefaultFusionWeights() FusionWeights {
	return FusionWeights{K: defaultRRFK}
}

func (w FusionWeights) normalize() FusionWeights {
	out := FusionWeights{K: w.K, Offsets: make(map[domain.Signal]int, len(w.Offsets))}
	if out.K <= 0 {
		out.K = defaultRRFK
	}
	for signal, offset := range w.Offsets {
		// rank starts at 1, so K+offset >= 0 keeps every denominator positive.
		if out.K+offset < 0 {
			offset = -out.K
		}
		out.Offsets[signal] = offset
	}
	return out
}

// KFor is the effective constant for one signal.
func (w FusionWeights) KFor(signal domain.Signal) int {
	n := w.normalize()
	return n.K + n.Offsets[signal]
}

// term renders one signal's contribution as SQL over a rank column.
func (w FusionWeights) term(signal domain.Signal, rankColumn string) string {
	return fmt.Sprintf("COALESCE(1.0 / (%s + %s), 0.0)", strconv.Itoa(w.KFor(signal)), rankColumn)
}
