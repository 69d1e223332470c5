package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_app",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Kafka messages handled and committed.",
	}, []string{"topic", "event_type"})

	handlerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_app",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Handler failures by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_app",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records skipped because they could not be decoded.",
	}, []string{"topic"})

	lastProcessedAt = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "social_app",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Producer timestamp of the newest committed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedTotal, handlerErrorsTotal, decodeErrorsTotal, lastProcessedAt)
}

func recordProcessed(msg Message) {
	processedTotal.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastProcessedAt.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorsTotal.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorsTotal.WithLabelValues(topic).Inc()
}
