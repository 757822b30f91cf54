package orderbook

import (
	"sync"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// OrderBook is the resting book of one market.
//
// Mutations run under the write lock; ladder reads (best quotes, snapshots,
// cross checks) under the read lock. The id index is a sync.Map so GetOrder
// never takes the lock, and may therefore briefly return an order that an
// in-flight cancel is about to remove.
type OrderBook struct {
	ticker string

	mu      sync.RWMutex
	bids    *rbTree // iterated highest first
	asks    *rbTree // iterated lowest first
	version uint64

	index     sync.Map // order id -> *Order
	listeners registry

	logger *log.Entry
}

// Quote is a copy of the top level of one ladder.
type Quote struct {
	Price  int
	Orders []*Order
}

// NewOrderBook creates an empty book for the given market ticker.
func NewOrderBook(ticker string) *OrderBook {
	return &OrderBook{
		ticker: ticker,
		bids:   newRBTree(),
		asks:   newRBTree(),
		logger: log.WithFields(log.Fields{
			"component": "orderbook",
			"ticker":    ticker,
		}),
	}
}

func (b *OrderBook) Ticker() string { return b.ticker }

func (b *OrderBook) AddListener(l Listener) { b.listeners.add(l) }

func (b *OrderBook) RemoveListener(l Listener) bool { return b.listeners.remove(l) }

// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────

// AddOrder rests o on its normalized ladder. It returns false without
// touching the book when the id is already present. A detected cross is
// reported to listeners but never prevents insertion.
func (b *OrderBook) AddOrder(o *Order) bool {
	b.mu.Lock()
	if _, exists := b.index.Load(o.id); exists {
		b.mu.Unlock()
		return false
	}
	if !o.resting.CompareAndSwap(false, true) {
		b.mu.Unlock()
		b.logger.WithField("order_id", o.id).Warn("order already rests in a book")
		return false
	}

	cross := b.checkCross(o)
	b.ladder(o.normBuy).UpsertLevel(o.normPrice).enqueue(o)
	b.index.Store(o.id, o)
	b.version++
	b.mu.Unlock()

	b.logger.WithFields(log.Fields{
		"order_id": o.id,
		"seq":      o.seq,
		"cross":    cross.String(),
	}).Debugf("order added %s", o)

	if cross != CrossNone {
		b.deliver(event{kind: eventCross, order: o, cross: cross}, event{kind: eventAdded, order: o})
		return true
	}
	b.deliver(event{kind: eventAdded, order: o})
	return true
}

// CancelOrder removes a resting order. Unknown ids return false.
func (b *OrderBook) CancelOrder(id string) bool {
	b.mu.Lock()
	o, ok := b.detach(id)
	b.mu.Unlock()
	if !ok {
		return false
	}

	b.logger.WithField("order_id", id).Debugf("order canceled %s", o)
	b.deliver(event{kind: eventCanceled, order: o})
	return true
}

// RemoveFilledOrder drops an order the execution collaborator has driven to
// zero remaining. No event is emitted. Removing an order that still has
// quantity open is an invariant violation.
func (b *OrderBook) RemoveFilledOrder(id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.index.Load(id)
	if !ok {
		return false, nil
	}
	if rem := v.(*Order).Remaining(); rem != 0 {
		return false, errors.AssertionFailedf("remove filled order %s with %d remaining", id, rem)
	}
	_, removed := b.detach(id)
	return removed, nil
}

// RemoveEmptyBidLevel deletes the bid level at price if it holds no orders.
func (b *OrderBook) RemoveEmptyBidLevel(price int) bool {
	return b.removeEmptyLevel(b.bids, price)
}

// RemoveEmptyAskLevel deletes the ask level at price if it holds no orders.
func (b *OrderBook) RemoveEmptyAskLevel(price int) bool {
	return b.removeEmptyLevel(b.asks, price)
}

// NotifyOrderExecuted fans out an execution reported by the execution
// collaborator. The book computes nothing, but the fill already changed the
// remaining quantity snapshots aggregate, so the version moves.
func (b *OrderBook) NotifyOrderExecuted(o *Order, qty int64) {
	b.mu.Lock()
	b.version++
	b.mu.Unlock()

	b.deliver(event{kind: eventExecuted, order: o, qty: qty})
}

// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────

// GetOrder is a lock-free point lookup.
func (b *OrderBook) GetOrder(id string) (*Order, bool) {
	v, ok := b.index.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Order), true
}

// BestBid returns the highest bid level.
func (b *OrderBook) BestBid() (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return quoteOf(b.bids.MaxLevel())
}

// BestAsk returns the lowest ask level.
func (b *OrderBook) BestAsk() (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return quoteOf(b.asks.MinLevel())
}

// Version increases on every change visible in a snapshot: adds, cancels,
// level removals and reported executions.
func (b *OrderBook) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Len is the number of resting orders.
func (b *OrderBook) Len() int {
	n := 0
	b.index.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Depth returns the number of price levels on each ladder.
func (b *OrderBook) Depth() (bids, asks int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.Size(), b.asks.Size()
}

// ──────────────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────────────

func (b *OrderBook) ladder(buy bool) *rbTree {
	if buy {
		return b.bids
	}
	return b.asks
}

// detach removes id from the index and its level, dropping the level once
// empty. Must be called with b.mu held for writing.
func (b *OrderBook) detach(id string) (*Order, bool) {
	v, ok := b.index.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	o := v.(*Order)
	tree := b.ladder(o.normBuy)
	if lvl := o.level; lvl != nil {
		lvl.unlink(o)
		if lvl.empty() {
			tree.DeleteLevel(lvl.price)
		}
	}
	o.resting.Store(false)
	b.version++
	return o, true
}

func (b *OrderBook) removeEmptyLevel(tree *rbTree, price int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	lvl := tree.FindLevel(price)
	if lvl == nil || !lvl.empty() {
		return false
	}
	tree.DeleteLevel(price)
	b.version++
	return true
}

func quoteOf(lvl *priceLevel) (Quote, bool) {
	if lvl == nil {
		return Quote{}, false
	}
	return Quote{Price: lvl.price, Orders: lvl.orders()}, true
}
