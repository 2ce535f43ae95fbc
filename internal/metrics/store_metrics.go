package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics содержит метрики магазина: заказы, смены статусов, отзывы.
type StoreMetrics struct {
	// Счётчики заказов
	ordersCreated     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	statusRejected    prometheus.Counter

	// Счётчики отзывов
	eligibilityChecks *prometheus.CounterVec
	reviewsAccepted   prometheus.Counter
	reviewsRejected   *prometheus.CounterVec

	// Гистограмма времени выполнения операций
	opDuration *prometheus.HistogramVec

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для заказов в нетерминальных статусах
	openOrders prometheus.Gauge
}

// NewStoreMetrics создаёт новый экземпляр метрик магазина.
func NewStoreMetrics() *StoreMetrics {
	return newStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_orders_created_total",
			Help: "Total number of orders created",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopcore_order_status_transitions_total",
			Help: "Total number of order status transitions applied",
		}, []string{"status"}),
		statusRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_order_status_rejected_total",
			Help: "Total number of order status transitions rejected",
		}),
		eligibilityChecks: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopcore_review_eligibility_checks_total",
			Help: "Total number of review eligibility checks",
		}, []string{"eligible"}),
		reviewsAccepted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_reviews_accepted_total",
			Help: "Total number of reviews accepted",
		}),
		reviewsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopcore_reviews_rejected_total",
			Help: "Total number of reviews rejected",
		}, []string{"reason"}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shopcore_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		openOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shopcore_open_orders",
			Help: "Number of orders currently in a non-terminal status",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *StoreMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
	m.openOrders.Inc()
}

// RecordStatusTransition увеличивает счётчик применённых переходов статуса.
func (m *StoreMetrics) RecordStatusTransition(status string, terminal bool) {
	m.statusTransitions.WithLabelValues(status).Inc()
	if terminal {
		m.openOrders.Dec()
	}
}

// RecordStatusRejected увеличивает счётчик отклонённых переходов статуса.
func (m *StoreMetrics) RecordStatusRejected() {
	m.statusRejected.Inc()
}

// RecordEligibilityCheck увеличивает счётчик проверок права на отзыв.
func (m *StoreMetrics) RecordEligibilityCheck(eligible bool) {
	if eligible {
		m.eligibilityChecks.WithLabelValues("true").Inc()
	} else {
		m.eligibilityChecks.WithLabelValues("false").Inc()
	}
}

// RecordReviewAccepted увеличивает счётчик принятых отзывов.
func (m *StoreMetrics) RecordReviewAccepted() {
	m.reviewsAccepted.Inc()
}

// RecordReviewRejected увеличивает счётчик отклонённых отзывов.
func (m *StoreMetrics) RecordReviewRejected(reason string) {
	m.reviewsRejected.WithLabelValues(reason).Inc()
}

// RecordOperationDuration записывает время выполнения операции.
func (m *StoreMetrics) RecordOperationDuration(op string, duration time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *StoreMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *StoreMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
