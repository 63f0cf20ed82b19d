package resilience

import "time"

// Config tunes retries and the circuit breaker for one class of outbound
// call. RetryMaxAttempts of 1 disables retries and leaves only the breaker.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// QueryEmbeddingConfig covers embedding calls made while a shopper waits for
// results. One quick retry absorbs a model server hiccup; anything slower is
// better reported in errorDetail than hidden behind backoff.
func QueryEmbeddingConfig() Config {
	return Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     150 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      15 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// InDatabaseEmbeddingConfig guards the embedding functions that run inside
// the catalog database. Database round trips are never retried, so only the
// breaker is active: when the embedding model is down, vector searches fail
// fast instead of each holding a connection until the model call times out.
func InDatabaseEmbeddingConfig() Config {
	cfg := QueryEmbeddingConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerMinRequests = 5
	return cfg
}

// EventPublishConfig is for search analytics events published on the request
// path. Events are best effort: no retries, and a quick breaker so a lost
// broker costs nothing per request.
func EventPublishConfig() Config {
	return Config{
		RetryMaxAttempts: 1,

		BreakerEnabled:          true,
		BreakerMinRequests:      3,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      10 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// WorstCaseBackoff is the total time spent sleeping between attempts when
// every attempt fails with a retryable error.
func (c Config) WorstCaseBackoff() time.Duration {
	n := c.normalize()
	var total time.Duration
	backoff := n.RetryInitialBackoff
	for attempt := 1; attempt < n.RetryMaxAttempts; attempt++ {
		total += min(backoff, n.RetryMaxBackoff)
		backoff = min(time.Duration(float64(backoff)*n.RetryMultiplier), n.RetryMaxBackoff)
	}
	return total
}

func (c Config) normalize() Config {
	out := c
	def := QueryEmbeddingConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
