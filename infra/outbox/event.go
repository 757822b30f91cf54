package outbox

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"predex/domain/orderbook"
)

const EventVersion = 1

// Event is the wire form of one book notification.
type Event struct {
	V         int    `msgpack:"v" json:"v"`
	Type      string `msgpack:"type" json:"type"`
	Ticker    string `msgpack:"ticker" json:"ticker"`
	OrderID   string `msgpack:"orderId" json:"orderId"`
	UserID    string `msgpack:"userId" json:"userId"`
	OrderSeq  uint64 `msgpack:"orderSeq" json:"orderSeq"`
	Side      string `msgpack:"side" json:"side"`
	Action    string `msgpack:"action" json:"action"`
	Price     int    `msgpack:"price" json:"price"`
	Remaining int64  `msgpack:"remaining" json:"remaining"`
	Qty       int64  `msgpack:"qty,omitempty" json:"qty,omitempty"`
	Cross     string `msgpack:"cross,omitempty" json:"cross,omitempty"`
	At        int64  `msgpack:"at" json:"at"`
}

func newEvent(typ, ticker string, o *orderbook.Order) Event {
	return Event{
		V:         EventVersion,
		Type:      typ,
		Ticker:    ticker,
		OrderID:   o.ID(),
		UserID:    o.UserID(),
		OrderSeq:  o.Seq(),
		Side:      o.Side().String(),
		Action:    o.Action().String(),
		Price:     o.Price(),
		Remaining: o.Remaining(),
		At:        time.Now().UnixNano(),
	}
}

func EncodeEvent(ev Event) ([]byte, error) {
	b, err := msgpack.Marshal(&ev)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s event for %s", ev.Type, ev.OrderID)
	}
	return b, nil
}

func DecodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := msgpack.Unmarshal(b, &ev); err != nil {
		return Event{}, errors.Wrap(err, "decode outbox event")
	}
	return ev, nil
}

// Listener appends every book event to the outbox.
type Listener struct {
	outbox *Outbox
}

var _ orderbook.Listener = (*Listener)(nil)

func NewListener(o *Outbox) *Listener {
	return &Listener{outbox: o}
}

func (l *Listener) append(ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	_, err = l.outbox.Append(payload)
	return err
}

func (l *Listener) OnOrderAdded(ticker string, o *orderbook.Order) error {
	return l.append(newEvent("order_added", ticker, o))
}

func (l *Listener) OnOrderCanceled(ticker string, o *orderbook.Order) error {
	return l.append(newEvent("order_canceled", ticker, o))
}

func (l *Listener) OnOrderExecuted(ticker string, o *orderbook.Order, qty int64) error {
	ev := newEvent("order_executed", ticker, o)
	ev.Qty = qty
	return l.append(ev)
}

func (l *Listener) OnCrossDetected(ticker string, o *orderbook.Order, kind orderbook.CrossKind) error {
	ev := newEvent("cross_detected", ticker, o)
	ev.Cross = kind.String()
	return l.append(ev)
}
