package orderbook

import (
	"strings"

	"predex/domain/pricing"
)

// CrossKind is a bit set describing why an incoming order crosses the book.
type CrossKind uint8

const (
	CrossNone CrossKind = 0
	// CrossSelf: the order's normalized price reaches the opposite ladder.
	CrossSelf CrossKind = 1
	// CrossExternal: best YES bid plus best resting NO bid exceed the payout.
	CrossExternal CrossKind = 2
)

func (k CrossKind) Has(flag CrossKind) bool { return k&flag != 0 }

func (k CrossKind) String() string {
	if k == CrossNone {
		return "none"
	}
	var parts []string
	if k.Has(CrossSelf) {
		parts = append(parts, "self")
	}
	if k.Has(CrossExternal) {
		parts = append(parts, "external")
	}
	return strings.Join(parts, "+")
}

// CheckCross evaluates o against the resting book without inserting it.
func (b *OrderBook) CheckCross(o *Order) CrossKind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.checkCross(o)
}

// checkCross must be called with b.mu held.
func (b *OrderBook) checkCross(o *Order) CrossKind {
	kind := CrossNone
	if o.normBuy {
		if best := b.asks.MinLevel(); best != nil && o.normPrice >= best.price {
			kind |= CrossSelf
		}
	} else {
		if best := b.bids.MaxLevel(); best != nil && o.normPrice <= best.price {
			kind |= CrossSelf
		}
	}
	if b.externalCross() {
		kind |= CrossExternal
	}
	return kind
}

// externalCross compares the best bid with the best resting buy-NO order.
// Buy-NO orders rest as asks, so the first one met walking the ask ladder
// upwards carries the highest NO price; only that one needs checking.
func (b *OrderBook) externalCross() bool {
	bestBid := b.bids.MaxLevel()
	if bestBid == nil {
		return false
	}
	crossed := false
	b.asks.ForEachAscending(func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			if o.isBuyNo() {
				crossed = pricing.Crosses(bestBid.price, o.price)
				return false
			}
		}
		return true
	})
	return crossed
}
