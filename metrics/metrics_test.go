package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/gedid/clog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		opts    []Option
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "disabled", cfg: &Config{Enabled: false}},
		{name: "dev default", cfg: NewDevDefaultConfig("gedid-test")},
		{name: "with runtime", cfg: &Config{Enabled: true, ServiceName: "gedid-test", Runtime: true}},
		{name: "with logger", cfg: NewDevDefaultConfig("gedid-test"), opts: []Option{WithLogger(clog.Discard())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter, err := New(tt.cfg, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, meter)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, meter.Shutdown(ctx))
		})
	}
}

func TestMeterExportsToPrometheus(t *testing.T) {
	meter, err := New(NewDevDefaultConfig("gedid-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	ctx := context.Background()
	counter, err := meter.Counter("test_ids_issued_total", "issued ids")
	require.NoError(t, err)
	gauge, err := meter.Gauge("test_bindings", "active bindings")
	require.NoError(t, err)
	histogram, err := meter.Histogram("test_next_duration", "next latency", WithUnit("s"), WithBuckets([]float64{0.001, 0.01, 0.1}))
	require.NoError(t, err)

	counter.Inc(ctx, L(LabelEngine, "redis"))
	counter.Add(ctx, 2, L(LabelEngine, "redis"))
	counter.Add(ctx, -5, L(LabelEngine, "redis"))
	gauge.Inc(ctx)
	gauge.Inc(ctx)
	gauge.Dec(ctx)
	histogram.Record(ctx, 0.005, L(LabelEngine, "snowflake"))

	rec := httptest.NewRecorder()
	Handler(meter).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `test_ids_issued_total{engine="redis"`)
	assert.Contains(t, text, "test_bindings")
	assert.Contains(t, text, "test_next_duration")
}

func TestDiscard(t *testing.T) {
	meter := Discard()
	ctx := context.Background()

	c, err := meter.Counter("c", "")
	require.NoError(t, err)
	c.Inc(ctx)
	g, err := meter.Gauge("g", "")
	require.NoError(t, err)
	g.Set(ctx, 3)
	h, err := meter.Histogram("h", "")
	require.NoError(t, err)
	h.Record(ctx, 1)

	rec := httptest.NewRecorder()
	Handler(meter).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
	assert.NoError(t, meter.Shutdown(ctx))
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "engine=redis|outcome=success", labelKey([]Label{L(LabelEngine, "redis"), L(LabelOutcome, OutcomeSuccess)}))
}
