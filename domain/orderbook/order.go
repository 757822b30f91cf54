package orderbook

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"predex/domain/pricing"
	"predex/infra/sequence"
)

// OrderParams are the caller-supplied terms of a new order.
type OrderParams struct {
	ID        string
	UserID    string
	Side      pricing.Side
	Action    pricing.Action
	Price     int
	Quantity  int64
	CreatedAt time.Time
}

// Order is a resting order. Identity and terms are immutable; only the
// remaining quantity changes, and only downwards through ReduceQuantity.
type Order struct {
	id        string
	userID    string
	side      pricing.Side
	action    pricing.Action
	price     int
	quantity  int64
	createdAt time.Time
	seq       uint64

	normPrice int
	normBuy   bool

	remaining atomic.Int64

	// level linkage, guarded by the owning book's lock
	resting atomic.Bool
	level   *priceLevel
	next    *Order
	prev    *Order
}

// NewOrder validates the terms, draws a sequence number from the shared order
// sequencer and computes the normalized ladder position.
func NewOrder(p OrderParams) (*Order, error) {
	if p.ID == "" {
		return nil, errors.Wrap(ErrInvalidOrder, "order id is required")
	}
	if err := pricing.ValidatePrice(p.Price); err != nil {
		return nil, err
	}
	if !p.Side.Valid() {
		return nil, errors.Wrapf(pricing.ErrInvalidInput, "side %d", p.Side)
	}
	if !p.Action.Valid() {
		return nil, errors.Wrapf(pricing.ErrInvalidInput, "action %d", p.Action)
	}
	if p.Quantity <= 0 {
		return nil, errors.Wrapf(ErrInvalidQuantity, "quantity must be positive, got %d", p.Quantity)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	o := &Order{
		id:        p.ID,
		userID:    p.UserID,
		side:      p.Side,
		action:    p.Action,
		price:     p.Price,
		quantity:  p.Quantity,
		createdAt: p.CreatedAt,
		seq:       sequence.Orders.Next(),
	}
	o.remaining.Store(p.Quantity)

	// Buy NO @ p rests as an ask at 100-p on the YES ladder, sell NO as a bid.
	if p.Side == pricing.No {
		o.normPrice = pricing.Payout - p.Price
		o.normBuy = p.Action == pricing.Sell
	} else {
		o.normPrice = p.Price
		o.normBuy = p.Action == pricing.Buy
	}
	return o, nil
}

func (o *Order) ID() string             { return o.id }
func (o *Order) UserID() string         { return o.userID }
func (o *Order) Side() pricing.Side     { return o.side }
func (o *Order) Action() pricing.Action { return o.action }
func (o *Order) Price() int             { return o.price }
func (o *Order) Quantity() int64        { return o.quantity }
func (o *Order) CreatedAt() time.Time   { return o.createdAt }
func (o *Order) Seq() uint64            { return o.seq }
func (o *Order) NormalizedPrice() int   { return o.normPrice }
func (o *Order) IsNormalizedBuy() bool  { return o.normBuy }
func (o *Order) Remaining() int64       { return o.remaining.Load() }
func (o *Order) FilledQuantity() int64  { return o.quantity - o.remaining.Load() }
func (o *Order) isBuyNo() bool          { return o.side == pricing.No && o.action == pricing.Buy }

// ReduceQuantity applies a fill. Reducing by a non-positive amount or by more
// than what remains is an invariant violation of the caller and is returned
// as an assertion failure with the order untouched.
func (o *Order) ReduceQuantity(amount int64) error {
	for {
		rem := o.remaining.Load()
		if amount <= 0 || amount > rem {
			return errors.WithAssertionFailure(
				errors.Wrapf(ErrOverfill, "reduce order %s by %d with %d remaining", o.id, amount, rem))
		}
		if o.remaining.CompareAndSwap(rem, rem-amount) {
			return nil
		}
	}
}

func (o *Order) String() string {
	side := "ask"
	if o.normBuy {
		side = "bid"
	}
	return fmt.Sprintf("%s[%s %s @ %d¢ → %s %d¢, %d/%d, seq=%d]",
		o.id, o.action, o.side, o.price, side, o.normPrice, o.Remaining(), o.quantity, o.seq)
}
