package reflection

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an opt-in set of counters an Engine records against, wired
// in via WithMetrics. A nil *Metrics (the default) disables all
// recording; every call site nil-checks before touching it, so metrics
// never become a hard dependency for callers who don't register a
// prometheus.Registerer.
type Metrics struct {
	ObjectsWritten   prometheus.Counter
	ObjectsRead      prometheus.Counter
	BytesWritten     prometheus.Counter
	BytesRead        prometheus.Counter
	UnresolvedTypes  prometheus.Counter
	UnresolvedFields prometheus.Counter
}

// NewMetrics registers the package's counters under namespace "reflection"
// against reg and returns the handle Engine will record against.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ObjectsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "objects_written_total",
			Help: "Top-level objects encoded by Engine.Marshal.",
		}),
		ObjectsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "objects_read_total",
			Help: "Top-level objects decoded by Engine.Unmarshal.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "bytes_written_total",
			Help: "Bytes produced by Engine.Marshal.",
		}),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "bytes_read_total",
			Help: "Bytes consumed by Engine.Unmarshal.",
		}),
		UnresolvedTypes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "unresolved_types_total",
			Help: "Actual types that fell back to ObjectData because no local type matched.",
		}),
		UnresolvedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reflection", Name: "unresolved_fields_total",
			Help: "Wire members discarded because the local struct no longer has a matching field.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.ObjectsWritten, m.ObjectsRead, m.BytesWritten, m.BytesRead,
		m.UnresolvedTypes, m.UnresolvedFields,
	} {
		reg.MustRegister(c)
	}
	return m
}
