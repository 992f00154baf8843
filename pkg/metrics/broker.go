package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RetryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "retry_attempts_total",
		Help:      "Handler retries, by service and topic.",
	}, []string{"service", "topic"})

	DLQMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broker",
		Name:      "dlq_messages_total",
		Help:      "Messages dead-lettered, by service, source topic and reason.",
	}, []string{"service", "topic", "reason"})

	kafkaMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "messages_total",
		Help:      "Kafka messages, by service, topic and direction (in or out).",
	}, []string{"service", "topic", "direction"})

	kafkaMessageSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "message_size_bytes",
		Help:      "Kafka message payload size.",
		Buckets:   prometheus.ExponentialBuckets(128, 4, 7),
	}, []string{"service", "topic", "direction"})

	kafkaDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "io_duration_seconds",
		Help:      "Time spent fetching or writing a message.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"service", "topic", "direction"})

	kafkaLag = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "kafka",
		Name:      "consumer_lag",
		Help:      "Messages behind the partition high water mark.",
	}, []string{"service", "topic", "partition"})
)

var Broker = Group{RetryAttemptsTotal, DLQMessagesTotal, kafkaMessages, kafkaMessageSize, kafkaDuration, kafkaLag}

func IncKafkaMessagesRead(service, topic string) {
	kafkaMessages.WithLabelValues(service, topic, "in").Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	kafkaMessages.WithLabelValues(service, topic, "out").Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, size int) {
	kafkaMessageSize.WithLabelValues(service, topic, direction).Observe(float64(size))
}

func ObserveKafkaReadDuration(service, topic string, d time.Duration) {
	kafkaDuration.WithLabelValues(service, topic, "in").Observe(d.Seconds())
}

func ObserveKafkaWriteDuration(service, topic string, d time.Duration) {
	kafkaDuration.WithLabelValues(service, topic, "out").Observe(d.Seconds())
}

func SetKafkaConsumerLag(service, topic string, partition int, lag int64) {
	kafkaLag.WithLabelValues(service, topic, strconv.Itoa(partition)).Set(float64(lag))
}
