package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-dds/pkg/types"
)

const namespace = "dds"
const subsystem = "discovery"

// Collector 基于 prometheus 的 Reporter 实现
type Collector struct {
	registry *prometheus.Registry

	enqueued    *prometheus.CounterVec
	flushed     *prometheus.CounterVec
	received    *prometheus.CounterVec
	malformed   *prometheus.CounterVec
	retransmits *prometheus.CounterVec
	exhausted   *prometheus.CounterVec

	participants prometheus.Gauge
	endpoints    prometheus.Gauge
	pendingAcks  prometheus.Gauge
	queueLen     prometheus.Gauge
}

var _ Reporter = (*Collector)(nil)

// NewCollector 创建 Collector，participant 作为常量标签
func NewCollector(participant string) *Collector {
	labels := prometheus.Labels{"participant": participant}

	counter := func(name, help string, vars ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, vars)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	c := &Collector{
		registry:     prometheus.NewRegistry(),
		enqueued:     counter("changes_enqueued_total", "Discovery changes entering the queue.", "target"),
		flushed:      counter("changes_flushed_total", "Discovery changes inserted into the writer history.", "target"),
		received:     counter("changes_received_total", "Remote discovery changes applied.", "target", "kind"),
		malformed:    counter("malformed_payloads_total", "Discarded discovery payloads.", "target"),
		retransmits:  counter("retransmissions_total", "Retransmissions to peers that have not acknowledged.", "target"),
		exhausted:    counter("history_exhausted_total", "Flushes stopped by a full writer history.", "target"),
		participants: gauge("participants", "Known participants including the local one."),
		endpoints:    gauge("endpoints", "Known endpoints."),
		pendingAcks:  gauge("pending_acks", "Subjects whose latest change is not fully acknowledged."),
		queueLen:     gauge("queue_length", "Discovery changes waiting for the next flush."),
	}
	c.registry.MustRegister(
		c.enqueued, c.flushed, c.received, c.malformed, c.retransmits, c.exhausted,
		c.participants, c.endpoints, c.pendingAcks, c.queueLen,
	)
	return c
}

// Registry 返回 Registry，可交给 promhttp 暴露
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ChangeEnqueued 实现 Reporter
func (c *Collector) ChangeEnqueued(target string) {
	c.enqueued.WithLabelValues(target).Inc()
}

// ChangesFlushed 实现 Reporter
func (c *Collector) ChangesFlushed(target string, n int) {
	c.flushed.WithLabelValues(target).Add(float64(n))
}

// ChangeReceived 实现 Reporter
func (c *Collector) ChangeReceived(target string, kind types.ChangeKind) {
	c.received.WithLabelValues(target, kind.String()).Inc()
}

// MalformedPayload 实现 Reporter
func (c *Collector) MalformedPayload(target string) {
	c.malformed.WithLabelValues(target).Inc()
}

// Retransmitted 实现 Reporter
func (c *Collector) Retransmitted(target string, peers int) {
	c.retransmits.WithLabelValues(target).Add(float64(peers))
}

// HistoryExhausted 实现 Reporter
func (c *Collector) HistoryExhausted(target string) {
	c.exhausted.WithLabelValues(target).Inc()
}

// SetDatabase 实现 Reporter
func (c *Collector) SetDatabase(participants, endpoints, pendingAcks, queueLen int) {
	c.participants.Set(float64(participants))
	c.endpoints.Set(float64(endpoints))
	c.pendingAcks.Set(float64(pendingAcks))
	c.queueLen.Set(float64(queueLen))
}

// Snapshot 汇总当前指标值，键为指标名（不含标签），同名指标求和
func (c *Collector) Snapshot() (map[string]float64, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
