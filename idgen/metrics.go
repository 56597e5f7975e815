package idgen

import (
	"context"
	"time"

	"github.com/ceyewan/gedid/metrics"
	"github.com/ceyewan/gedid/xerrors"
)

// 指标名
const (
	// MetricIDsIssued 已发放的 ID 总数 (Counter)
	MetricIDsIssued = "gedid_ids_issued_total"

	// MetricNextErrors Next 失败次数 (Counter)
	MetricNextErrors = "gedid_next_errors_total"

	// MetricNextDuration Next 耗时 (Histogram, 秒)
	MetricNextDuration = "gedid_next_duration_seconds"

	// MetricBindings 已完成的业务绑定数 (Gauge)
	MetricBindings = "gedid_bindings"
)

var nextDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

type loaderMetrics struct {
	issued   metrics.Counter
	errors   metrics.Counter
	duration metrics.Histogram
	bindings metrics.Gauge
}

func newLoaderMetrics(meter metrics.Meter) (*loaderMetrics, error) {
	issued, err := meter.Counter(MetricIDsIssued, "Number of ids issued by engine and business")
	if err != nil {
		return nil, xerrors.Wrap(err, "create issued counter")
	}
	errs, err := meter.Counter(MetricNextErrors, "Number of failed next calls by engine and business")
	if err != nil {
		return nil, xerrors.Wrap(err, "create next errors counter")
	}
	duration, err := meter.Histogram(MetricNextDuration, "Latency of next calls by engine",
		metrics.WithUnit("s"), metrics.WithBuckets(nextDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create next duration histogram")
	}
	bindings, err := meter.Gauge(MetricBindings, "Number of bound businesses")
	if err != nil {
		return nil, xerrors.Wrap(err, "create bindings gauge")
	}
	return &loaderMetrics{issued: issued, errors: errs, duration: duration, bindings: bindings}, nil
}

func (m *loaderMetrics) observeNext(ctx context.Context, engine, business string, start time.Time, err error) {
	m.duration.Record(ctx, time.Since(start).Seconds(), metrics.L(metrics.LabelEngine, engine))
	labels := []metrics.Label{metrics.L(metrics.LabelEngine, engine), metrics.L(metrics.LabelBusiness, business)}
	if err != nil {
		m.errors.Inc(ctx, labels...)
		return
	}
	m.issued.Inc(ctx, labels...)
}
