package connector

import (
	"context"

	"github.com/ceyewan/gedid/metrics"
	"github.com/ceyewan/gedid/xerrors"
)

const (
	metricConnectTotal = "connector_connect_attempts_total"
	metricUp           = "connector_up"
)

// connMetrics 所有连接器共用的连接指标
type connMetrics struct {
	attempts metrics.Counter
	up       metrics.Gauge
	labels   []metrics.Label
}

func newConnMetrics(meter metrics.Meter, kind, name string) (*connMetrics, error) {
	attempts, err := meter.Counter(metricConnectTotal, "Number of connection attempts by connector and outcome")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect attempts counter")
	}
	up, err := meter.Gauge(metricUp, "Whether the connector currently holds a healthy connection")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connector up gauge")
	}
	return &connMetrics{
		attempts: attempts,
		up:       up,
		labels:   []metrics.Label{metrics.L("connector", kind), metrics.L("name", name)},
	}, nil
}

func (m *connMetrics) connected(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m.attempts.Inc(ctx, append(m.labels, metrics.L(metrics.LabelOutcome, outcome))...)
	m.setUp(ctx, err == nil)
}

func (m *connMetrics) setUp(ctx context.Context, up bool) {
	val := 0.0
	if up {
		val = 1
	}
	m.up.Set(ctx, val, m.labels...)
}
