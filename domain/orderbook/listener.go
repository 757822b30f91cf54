package orderbook

import (
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Listener receives book events. It is implemented by the collaborators
// around the book (market data distribution, execution, metrics).
//
// Events are delivered synchronously on the mutating goroutine after the
// book's lock has been released, so a listener may call back into the book.
// A returned error or a panic is logged and never reaches the caller or the
// remaining listeners.
type Listener interface {
	OnOrderAdded(ticker string, o *Order) error
	OnOrderCanceled(ticker string, o *Order) error
	OnOrderExecuted(ticker string, o *Order, qty int64) error
	OnCrossDetected(ticker string, o *Order, kind CrossKind) error
}

// ListenerFuncs adapts plain functions into a Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	Added    func(ticker string, o *Order) error
	Canceled func(ticker string, o *Order) error
	Executed func(ticker string, o *Order, qty int64) error
	Cross    func(ticker string, o *Order, kind CrossKind) error
}

func (f *ListenerFuncs) OnOrderAdded(ticker string, o *Order) error {
	if f.Added == nil {
		return nil
	}
	return f.Added(ticker, o)
}

func (f *ListenerFuncs) OnOrderCanceled(ticker string, o *Order) error {
	if f.Canceled == nil {
		return nil
	}
	return f.Canceled(ticker, o)
}

func (f *ListenerFuncs) OnOrderExecuted(ticker string, o *Order, qty int64) error {
	if f.Executed == nil {
		return nil
	}
	return f.Executed(ticker, o, qty)
}

func (f *ListenerFuncs) OnCrossDetected(ticker string, o *Order, kind CrossKind) error {
	if f.Cross == nil {
		return nil
	}
	return f.Cross(ticker, o, kind)
}

// registry is a copy-on-write listener list. Readers load an immutable slice,
// so a delivery in progress is unaffected by concurrent registration.
type registry struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]Listener]
}

func (r *registry) add(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.snapshot()
	next := make([]Listener, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, l)
	r.listeners.Store(&next)
}

func (r *registry) remove(l Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.snapshot()
	for i, x := range cur {
		if x == l {
			next := make([]Listener, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			r.listeners.Store(&next)
			return true
		}
	}
	return false
}

func (r *registry) snapshot() []Listener {
	if p := r.listeners.Load(); p != nil {
		return *p
	}
	return nil
}

type eventKind uint8

const (
	eventAdded eventKind = iota
	eventCanceled
	eventExecuted
	eventCross
)

func (k eventKind) String() string {
	switch k {
	case eventAdded:
		return "order_added"
	case eventCanceled:
		return "order_canceled"
	case eventExecuted:
		return "order_executed"
	case eventCross:
		return "cross_detected"
	default:
		return "unknown"
	}
}

// event is one pending notification produced under the lock and delivered
// after it is released.
type event struct {
	kind  eventKind
	order *Order
	qty   int64
	cross CrossKind
}

func (b *OrderBook) deliver(events ...event) {
	listeners := b.listeners.snapshot()
	if len(listeners) == 0 {
		return
	}
	for _, ev := range events {
		for _, l := range listeners {
			b.deliverOne(l, ev)
		}
	}
}

func (b *OrderBook) deliverOne(l Listener, ev event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(log.Fields{
				"event":    ev.kind.String(),
				"order_id": ev.order.ID(),
				"listener": fmt.Sprintf("%T", l),
			}).Errorf("listener panicked: %v", r)
		}
	}()

	var err error
	switch ev.kind {
	case eventAdded:
		err = l.OnOrderAdded(b.ticker, ev.order)
	case eventCanceled:
		err = l.OnOrderCanceled(b.ticker, ev.order)
	case eventExecuted:
		err = l.OnOrderExecuted(b.ticker, ev.order, ev.qty)
	case eventCross:
		err = l.OnCrossDetected(b.ticker, ev.order, ev.cross)
	}
	if err != nil {
		b.logger.WithError(err).WithFields(log.Fields{
			"event":    ev.kind.String(),
			"order_id": ev.order.ID(),
			"listener": fmt.Sprintf("%T", l),
		}).Error("listener failed")
	}
}
