package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/types"
)

type instrumentedSegmenter struct {
	next piecewise.Segmenter
}

// Instrumented wraps a Segmenter and records every Encode call.
func Instrumented(next piecewise.Segmenter) piecewise.Segmenter {
	return &instrumentedSegmenter{next: next}
}

func (m *instrumentedSegmenter) Encode(text []byte) (types.Codes, error) {
	timer := prometheus.NewTimer(EncodeLatency)
	defer timer.ObserveDuration()

	EncodeRequests.Inc()
	EncodedBytes.Add(float64(len(text)))

	codes, err := m.next.Encode(text)
	if err != nil {
		EncodeFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	if len(codes) > 2 {
		EncodedPieces.Add(float64(len(codes) - 2))
	}
	return codes, nil
}
