package cacheset

import "go.uber.org/zap"

// MinimumCapacity is the smallest capacity accepted by New. A single slot
// would turn CLOCK into "always evict the only entry".
const MinimumCapacity = 2

// Default length limits applied by New when Options leaves them zero.
const (
	DefaultMaxKeyLen   = 256
	DefaultMaxValueLen = 256 << 10
)

// EvictReason explains why an entry left the set.
type EvictReason int

const (
	// EvictClock — chosen as victim by the CLOCK hand to make room for a put.
	EvictClock EvictReason = iota
	// EvictDelete — removed by an explicit Delete.
	EvictDelete
)

func (r EvictReason) String() string {
	switch r {
	case EvictClock:
		return "clock"
	case EvictDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-set observability hooks.
// Implementations must be safe for concurrent use; hooks are called with
// the set's guard held, so keep them cheap.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Size reports the resident entry count and the bytes held by keys and values.
	Size(entries int, bytes int64)
}

// Options configures a CacheSet. Zero values are replaced in New:
//   - MaxKeyLen   == 0 => DefaultMaxKeyLen
//   - MaxValueLen == 0 => DefaultMaxValueLen
//   - nil Metrics      => NoopMetrics
//   - nil Logger       => zap.NewNop()
type Options struct {
	// MaxKeyLen and MaxValueLen bound the inputs of every operation.
	// They are injected by the owning store and never derived here.
	MaxKeyLen   int
	MaxValueLen int

	Metrics Metrics
	Logger  *zap.Logger

	// OnEvict observes entries leaving the set through eviction or Delete.
	// It runs under the guard and owns the slices it is handed.
	OnEvict func(key, value []byte, reason EvictReason)
}

func (o Options) withDefaults() Options {
	if o.MaxKeyLen == 0 {
		o.MaxKeyLen = DefaultMaxKeyLen
	}
	if o.MaxValueLen == 0 {
		o.MaxValueLen = DefaultMaxValueLen
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
