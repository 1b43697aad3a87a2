// Package metrics exposes Prometheus collectors for encoding traffic.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wbrown/piecewise"
)

var (
	// EncodeRequests counts Encode calls.
	EncodeRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piecewise", Subsystem: "encoder", Name: "requests_total",
		Help: "Total number of encode calls",
	})
	// EncodeFailures counts Encode calls that returned an error.
	EncodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piecewise", Subsystem: "encoder", Name: "failures_total",
		Help: "Total number of failed encode calls by reason",
	}, []string{"reason"})
	// EncodedPieces counts pieces emitted, sentinels excluded.
	EncodedPieces = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piecewise", Subsystem: "encoder", Name: "pieces_total",
		Help: "Total number of pieces emitted",
	})
	EncodedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piecewise", Subsystem: "encoder", Name: "input_bytes_total",
		Help: "Total number of input bytes encoded",
	})
	// EncodeLatency observes the latency of Encode calls.
	EncodeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "piecewise", Subsystem: "encoder", Name: "latency_seconds",
		Help:    "Latency of encode calls in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
)

// Failure reasons reported by EncodeFailures.
const (
	ReasonUnmatched  = "unmatched"
	ReasonOutOfRange = "out_of_range"
	ReasonOther      = "other"
)

// Collectors returns the package level collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		EncodeRequests, EncodeFailures, EncodedPieces, EncodedBytes,
		EncodeLatency,
	}
}

// Register adds collectors to registerer. Collectors already present are
// left alone, so Register may be called more than once per registry.
func Register(registerer prometheus.Registerer,
	collectors ...prometheus.Collector) error {
	if len(collectors) == 0 {
		collectors = Collectors()
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// CacheCollectors reports the hit and miss counters and the size of cache.
func CacheCollectors(cache *piecewise.CachedEncoder) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "piecewise", Subsystem: "cache", Name: "hits_total",
			Help: "Encodings served from the cache",
		}, func() float64 { return float64(cache.Hits()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "piecewise", Subsystem: "cache", Name: "misses_total",
			Help: "Encodings computed on a cache miss",
		}, func() float64 { return float64(cache.Misses()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "piecewise", Subsystem: "cache", Name: "entries",
			Help: "Encodings currently cached",
		}, func() float64 { return float64(cache.Len()) }),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, piecewise.ErrUnmatchedInput):
		return ReasonUnmatched
	case errors.Is(err, piecewise.ErrPieceOutOfRange):
		return ReasonOutOfRange
	default:
		return ReasonOther
	}
}
