package reflection

import (
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordObjectsAndUnresolvedFields(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := New(WithMetrics(m))

	data, err := e.Marshal(wideRecord{A: 1, B: "x", C: true})
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(m.ObjectsWritten))
	require.True(t, testutil.ToFloat64(m.BytesWritten) > 0)

	_, err = e.Unmarshal(data, reflect.TypeOf(narrowRecord{}))
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(m.ObjectsRead))
	require.Equal(t, float64(1), testutil.ToFloat64(m.UnresolvedFields))
}

func TestMetricsNilIsSafe(t *testing.T) {
	e := New()
	data, err := e.Marshal(pair{A: 1, B: "a"})
	require.NoError(t, err)
	_, err = e.Unmarshal(data, reflect.TypeOf(pair{}))
	require.NoError(t, err)
}
