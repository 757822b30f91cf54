package orderbook

import "predex/domain/pricing"

// Level is one aggregated price level.
type Level struct {
	Price    int
	Quantity int64
}

// Snapshot is a point-in-time view of the normalized ladders, best level
// first on each side.
type Snapshot struct {
	Ticker  string
	Version uint64
	Bids    []Level
	Asks    []Level
}

// MarketView is the book as YES and NO bids: YES holds the bid ladder at its
// normalized prices, NO holds resting buy-NO orders at their own NO price.
// Both are best first. Sell-YES asks have no NO-bid equivalent and are left
// out.
type MarketView struct {
	Ticker  string
	Version uint64
	Yes     []Level
	No      []Level
}

// Snapshot aggregates up to depth levels per ladder. A depth of zero or less
// yields empty sides.
func (b *OrderBook) Snapshot(depth int) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Snapshot{
		Ticker:  b.ticker,
		Version: b.version,
		Bids:    aggregate(b.bids.ForEachDescending, depth),
		Asks:    aggregate(b.asks.ForEachAscending, depth),
	}
}

// MarketView aggregates up to depth YES and NO bid levels.
func (b *OrderBook) MarketView(depth int) MarketView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := MarketView{
		Ticker:  b.ticker,
		Version: b.version,
		Yes:     aggregate(b.bids.ForEachDescending, depth),
		No:      []Level{},
	}
	if depth <= 0 {
		return view
	}
	// Lowest ask is the highest NO price.
	b.asks.ForEachAscending(func(lvl *priceLevel) bool {
		var qty int64
		for o := lvl.head; o != nil; o = o.next {
			if o.isBuyNo() {
				qty += o.Remaining()
			}
		}
		if qty > 0 {
			view.No = append(view.No, Level{Price: pricing.Payout - lvl.price, Quantity: qty})
		}
		return len(view.No) < depth
	})
	return view
}

func aggregate(walk func(func(*priceLevel) bool), depth int) []Level {
	out := []Level{}
	if depth <= 0 {
		return out
	}
	walk(func(lvl *priceLevel) bool {
		out = append(out, Level{Price: lvl.price, Quantity: lvl.totalRemaining()})
		return len(out) < depth
	})
	return out
}
