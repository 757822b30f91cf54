// Package metrics exposes prometheus instrumentation for the order book
// and the ops HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"predex/domain/orderbook"
)

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// BookMetrics is an orderbook.Listener counting book events.
type BookMetrics struct {
	events   *prometheus.CounterVec
	crosses  *prometheus.CounterVec
	executed *prometheus.CounterVec
}

var _ orderbook.Listener = (*BookMetrics)(nil)

func NewBookMetrics(reg prometheus.Registerer) *BookMetrics {
	m := &BookMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderbook_events_total",
				Help: "Book events delivered to listeners",
			},
			[]string{"ticker", "event"},
		),
		crosses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderbook_crosses_total",
				Help: "Crosses detected on insertion, by kind",
			},
			[]string{"ticker", "kind"},
		),
		executed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderbook_executed_quantity_total",
				Help: "Contracts reported executed by the execution collaborator",
			},
			[]string{"ticker"},
		),
	}
	reg.MustRegister(m.events, m.crosses, m.executed)
	return m
}

// RestingBook is the part of the book the resting-orders gauge reads.
type RestingBook interface {
	Ticker() string
	Len() int
}

// RegisterRestingOrders exposes the live resting order count of book. It is
// read at scrape time because filled orders leave the book without an event.
func RegisterRestingOrders(reg prometheus.Registerer, book RestingBook) prometheus.GaugeFunc {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "orderbook_resting_orders",
			Help:        "Orders currently resting in the book",
			ConstLabels: prometheus.Labels{"ticker": book.Ticker()},
		},
		func() float64 { return float64(book.Len()) },
	)
	reg.MustRegister(g)
	return g
}

func (m *BookMetrics) OnOrderAdded(ticker string, _ *orderbook.Order) error {
	m.events.WithLabelValues(ticker, "order_added").Inc()
	return nil
}

func (m *BookMetrics) OnOrderCanceled(ticker string, _ *orderbook.Order) error {
	m.events.WithLabelValues(ticker, "order_canceled").Inc()
	return nil
}

func (m *BookMetrics) OnOrderExecuted(ticker string, _ *orderbook.Order, qty int64) error {
	m.events.WithLabelValues(ticker, "order_executed").Inc()
	m.executed.WithLabelValues(ticker).Add(float64(qty))
	return nil
}

func (m *BookMetrics) OnCrossDetected(ticker string, _ *orderbook.Order, kind orderbook.CrossKind) error {
	m.events.WithLabelValues(ticker, "cross_detected").Inc()
	for _, k := range []orderbook.CrossKind{orderbook.CrossSelf, orderbook.CrossExternal} {
		if kind.Has(k) {
			m.crosses.WithLabelValues(ticker, k.String()).Inc()
		}
	}
	return nil
}
