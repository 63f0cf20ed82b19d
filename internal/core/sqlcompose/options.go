package sqlcompose

// Options holds the tunable constants of statement composition. None of them
// come from request input.
type Options struct {
	Table string

	PageSize       int
	HybridPageSize int

	// VectorPool bounds the nearest-neighbour pool of semantic and image
	// search before the distance threshold applies.
	VectorPool int
	// HybridPool bounds each signal's candidate list inside hybrid search.
	HybridPool int

	TextDistanceThreshold  float64
	ImageDistanceThreshold float64

	TextSearchConfig string
	Fusion           FusionWeights
}

func DefaultOptions() Options {
	return Options{
		Table:                  "products",
		PageSize:               12,
		HybridPageSize:         20,
		VectorPool:             500,
		HybridPool:             40,
		TextDistanceThreshold:  0.75,
		ImageDistanceThreshold: 0.85,
		TextSearchConfig:       "english",
		Fusion:                 DefaultFusionWeights(),
	}
}

func (o Options) normalize() Options {
	out := o
	def := DefaultOptions()
	if out.Table == "" {
		out.Table = def.Table
	}
	if out.PageSize <= 0 {
		out.PageSize = def.PageSize
	}
	if out.HybridPageSize <= 0 {
		out.HybridPageSize = def.HybridPageSize
	}
	if out.VectorPool <= 0 {
		out.VectorPool = def.VectorPool
	}
	if out.HybridPool <= 0 {
		out.HybridPool = def.HybridPool
	}
	if out.TextDistanceThreshold <= 0 {
		out.TextDistanceThreshold = def.TextDistanceThreshold
	}
	if out.ImageDistanceThreshold <= 0 {
		out.ImageDistanceThreshold = def.ImageDistanceThreshold
	}
	if out.TextSearchConfig == "" {
		out.TextSearchConfig = def.TextSearchConfig
	}
	out.Fusion = out.Fusion.normalize()
	return out
}
