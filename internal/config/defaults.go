package config

import "time"

// Bench defaults.
const (
	// DefaultBenchKeys is the number of keys generated per bench run.
	DefaultBenchKeys = 100_000
	// DefaultBenchPattern is the key pattern used when none is configured.
	DefaultBenchPattern = "random"
	// DefaultBenchSeed seeds key permutations and mixed-phase scripts.
	DefaultBenchSeed = 1
	// DefaultBenchMix is the insert:erase:find weighting of the mixed phase.
	DefaultBenchMix = "50:30:20"
	// DefaultBenchVerifyEvery disables periodic invariant checks.
	DefaultBenchVerifyEvery = 0
	// DefaultBenchFormat is the report output format.
	DefaultBenchFormat = "table"
)

// Node cache defaults.
const (
	// DefaultCacheCapacity is the free-list capacity; zero disables the cache.
	DefaultCacheCapacity = 0
	// DefaultCacheLimit is the live-node limit; zero means unlimited.
	DefaultCacheLimit = 0
)

// Soak defaults.
const (
	// DefaultSoakDuration is how long soak churns before exiting; zero runs
	// until interrupted.
	DefaultSoakDuration = time.Duration(0)
	// DefaultSoakWindow is the number of live keys kept during soak.
	DefaultSoakWindow = 4096
	// DefaultSoakMetricsAddr is the diagnostics listen address.
	DefaultSoakMetricsAddr = "127.0.0.1:9464"
	// DefaultSoakReportInterval is how often soak logs progress.
	DefaultSoakReportInterval = 10 * time.Second
)

// Observability defaults.
const (
	// DefaultLogLevel is the minimum log severity.
	DefaultLogLevel = "info"
	// DefaultSampleRatio is the trace sampling ratio.
	DefaultSampleRatio = 1.0
	// DefaultEnvironment is the deployment environment resource attribute.
	DefaultEnvironment = "dev"
)
