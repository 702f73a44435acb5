package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
)

const namespace = "admin_notify"

var _ registry.Observer = (*Observer)(nil)

// Observer exports registry lifecycle signals as Prometheus series.
type Observer struct {
	registry *prometheus.Registry

	channelsOpen   prometheus.Gauge
	channelsOpened *prometheus.CounterVec
	channelsClosed *prometheus.CounterVec
	emitted        *prometheus.CounterVec
	delivered      *prometheus.CounterVec
	evicted        prometheus.Counter
}

func NewObserver() *Observer {
	reg := prometheus.NewRegistry()

	o := &Observer{
		registry: reg,
		channelsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels_open",
			Help:      "Channels currently registered in the hub",
		}),
		channelsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_opened_total",
			Help:      "Channels opened, by transport",
		}, []string{"transport"}),
		channelsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_closed_total",
			Help:      "Channels closed, by close code",
		}, []string{"code"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fanned_out_total",
			Help:      "Events fanned out, by kind",
		}, []string{"kind"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_enqueued_total",
			Help:      "Per-channel enqueues, by kind",
		}, []string{"kind"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumer_evictions_total",
			Help:      "Channels evicted because their buffer overflowed",
		}),
	}

	reg.MustRegister(
		o.channelsOpen,
		o.channelsOpened,
		o.channelsClosed,
		o.emitted,
		o.delivered,
		o.evicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

func (o *Observer) ChannelOpened(meta model.ConnectMetadata) {
	transport := meta.Transport
	if transport == "" {
		transport = "unknown"
	}
	o.channelsOpen.Inc()
	o.channelsOpened.WithLabelValues(transport).Inc()
}

func (o *Observer) ChannelClosed(code string) {
	o.channelsOpen.Dec()
	o.channelsClosed.WithLabelValues(code).Inc()
}

func (o *Observer) Fanout(kind event.Kind, delivered int) {
	o.emitted.WithLabelValues(kind.String()).Inc()
	o.delivered.WithLabelValues(kind.String()).Add(float64(delivered))
}

func (o *Observer) Evicted() { o.evicted.Inc() }

// Handler serves the private registry in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
