// Package limit enforces per-model-kind rate limits and concurrency caps
// on top of the pool-wide concurrency.
//
// Model kinds differ widely in cost: a random forest fit can occupy a core
// for minutes while a linear fit finishes in milliseconds. Use [Config] to
// keep one kind from starving the pool:
//
//	limit.Config{
//	    Kind:           "random_forest",
//	    MaxConcurrency: 2,      // max 2 concurrent forest fits
//	    RateLimit:      0.5,    // max 1 admission per 2s
//	    RateBurst:      2,      // allow bursts of 2
//	}
//
// Pass configs when building the engine:
//
//	engine.Build(svc,
//	    engine.WithLimitConfig(
//	        limit.Config{Kind: "random_forest", MaxConcurrency: 2},
//	    ),
//	)
//
// [Manager] enforces the limits at dispatch time. It uses a token-bucket
// rate limiter (golang.org/x/time/rate) and an active-count gate for
// concurrency limits. Kinds without a [Config] have no limits beyond the
// pool-wide concurrency.
//
//	m := limit.NewManager(configs...)
//	if m.Acquire(kind) {
//	    defer m.Release(kind)
//	    // run the pipeline
//	}
package limit
