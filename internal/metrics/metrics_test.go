package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.Render()
	r.Render()
	r.CacheHit()
	r.CacheMiss()
	r.CacheError("put")
	r.Build(10*time.Millisecond, 7, nil)
	r.Build(time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.renders))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheErrors.WithLabelValues("put")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.builds.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.builds.WithLabelValues("failure")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.planSteps))
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Render()
	r.CacheHit()
	r.CacheMiss()
	r.CacheError("get")
	r.Build(time.Second, 1, nil)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.Render()

	path := filepath.Join(t.TempDir(), "stageplan.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stageplan_renders_total 1")
}
