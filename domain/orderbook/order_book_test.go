package orderbook

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predex/domain/pricing"
)

type recorded struct {
	kind  string
	id    string
	qty   int64
	cross CrossKind
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) add(ev recorded) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnOrderAdded(_ string, o *Order) error {
	return r.add(recorded{kind: "added", id: o.ID()})
}

func (r *recorder) OnOrderCanceled(_ string, o *Order) error {
	return r.add(recorded{kind: "canceled", id: o.ID()})
}

func (r *recorder) OnOrderExecuted(_ string, o *Order, qty int64) error {
	return r.add(recorded{kind: "executed", id: o.ID(), qty: qty})
}

func (r *recorder) OnCrossDetected(_ string, o *Order, kind CrossKind) error {
	return r.add(recorded{kind: "cross", id: o.ID(), cross: kind})
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

func (r *recorder) crosses() []recorded {
	var out []recorded
	for _, ev := range r.all() {
		if ev.kind == "cross" {
			out = append(out, ev)
		}
	}
	return out
}

func ids(orders []*Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID())
	}
	return out
}

func TestFIFOAndCancelLifecycle(t *testing.T) {
	b := NewOrderBook("TEST")
	first := mustOrder(t, "seq1", pricing.Yes, pricing.Buy, 45, 10)
	second := mustOrder(t, "seq2", pricing.Yes, pricing.Buy, 45, 5)
	require.True(t, b.AddOrder(first))
	require.True(t, b.AddOrder(second))

	q, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 45, q.Price)
	assert.Equal(t, []string{"seq1", "seq2"}, ids(q.Orders))

	require.True(t, b.CancelOrder("seq1"))
	q, ok = b.BestBid()
	require.True(t, ok)
	assert.Equal(t, []string{"seq2"}, ids(q.Orders))

	require.True(t, b.CancelOrder("seq2"))
	_, ok = b.BestBid()
	assert.False(t, ok)
	assert.Nil(t, b.bids.FindLevel(45))

	_, ok = b.GetOrder("seq1")
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())
}

func TestLevelQueuesInArrivalOrder(t *testing.T) {
	b := NewOrderBook("TEST")
	early := mustOrder(t, "early", pricing.Yes, pricing.Buy, 45, 1)
	late := mustOrder(t, "late", pricing.Yes, pricing.Buy, 45, 1)
	require.Less(t, early.Seq(), late.Seq())

	require.True(t, b.AddOrder(late))
	require.True(t, b.AddOrder(early))

	q, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, []string{"late", "early"}, ids(q.Orders), "time priority is entry into the book")
}

func TestCancelMiddleKeepsQueueOrder(t *testing.T) {
	b := NewOrderBook("TEST")
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, b.AddOrder(mustOrder(t, id, pricing.Yes, pricing.Sell, 60, 1)))
	}
	require.True(t, b.CancelOrder("b"))

	q, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, ids(q.Orders))

	require.True(t, b.AddOrder(mustOrder(t, "d", pricing.No, pricing.Buy, 40, 1)))
	q, _ = b.BestAsk()
	assert.Equal(t, []string{"a", "c", "d"}, ids(q.Orders), "buy no @40 joins the ask tail at 60")
}

func TestAddOrderRejectsDuplicateID(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "dup", pricing.Yes, pricing.Buy, 40, 1)))
	v := b.Version()
	assert.False(t, b.AddOrder(mustOrder(t, "dup", pricing.Yes, pricing.Buy, 41, 1)))

	assert.Equal(t, v, b.Version())
	assert.Len(t, rec.all(), 1)
	bids, asks := b.Depth()
	assert.Equal(t, 1, bids)
	assert.Equal(t, 0, asks)
}

func TestAddOrderRejectsOrderRestingElsewhere(t *testing.T) {
	a, other := NewOrderBook("A"), NewOrderBook("B")
	o := mustOrder(t, "shared", pricing.Yes, pricing.Buy, 40, 1)
	require.True(t, a.AddOrder(o))
	assert.False(t, other.AddOrder(o))

	require.True(t, a.CancelOrder("shared"))
	assert.True(t, other.AddOrder(o))
}

func TestCancelUnknownOrder(t *testing.T) {
	b := NewOrderBook("TEST")
	assert.False(t, b.CancelOrder("missing"))
}

func TestLaddersFollowNormalization(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "buy-yes", pricing.Yes, pricing.Buy, 40, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "sell-no", pricing.No, pricing.Sell, 55, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "sell-yes", pricing.Yes, pricing.Sell, 80, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "buy-no", pricing.No, pricing.Buy, 25, 1)))

	bid, _ := b.BestBid()
	assert.Equal(t, 45, bid.Price, "sell no @55 is a bid at 45")
	ask, _ := b.BestAsk()
	assert.Equal(t, 75, ask.Price, "buy no @25 is an ask at 75")

	snap := b.Snapshot(10)
	assert.Equal(t, []Level{{45, 1}, {40, 1}}, snap.Bids)
	assert.Equal(t, []Level{{75, 1}, {80, 1}}, snap.Asks)
}

func TestConcurrentAddsAllIndexedOnce(t *testing.T) {
	b := NewOrderBook("TEST")
	const workers, per = 8, 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				side, action := pricing.Yes, pricing.Buy
				if i%2 == 1 {
					side = pricing.No
				}
				o := mustOrder(t, fmt.Sprintf("w%d-%d", w, i), side, action, 1+(i%40), 1)
				if !b.AddOrder(o) {
					t.Errorf("add %s rejected", o.ID())
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*per, b.Len())

	seen := map[string]int{}
	walk := func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			seen[o.ID()]++
		}
		return true
	}
	b.bids.ForEachAscending(walk)
	b.asks.ForEachAscending(walk)
	assert.Len(t, seen, workers*per)
	for id, n := range seen {
		assert.Equal(t, 1, n, "order %s linked %d times", id, n)
		_, ok := b.GetOrder(id)
		assert.True(t, ok)
	}
}

func TestSnapshotNeverTornUnderChurn(t *testing.T) {
	b := NewOrderBook("TEST")
	const writers, per = 4, 300

	done := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 2; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := b.Snapshot(100)
				for _, lvl := range append(snap.Bids, snap.Asks...) {
					if lvl.Quantity <= 0 {
						t.Errorf("torn level %+v", lvl)
						return
					}
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				b.AddOrder(mustOrder(t, id, pricing.Yes, pricing.Sell, 50+(i%10), 3))
				if i%2 == 0 {
					b.CancelOrder(id)
				}
			}
		}(w)
	}
	wg.Wait()
	close(done)
	readers.Wait()

	assert.Equal(t, writers*per/2, b.Len())
}

func TestSelfCross(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "ask55", pricing.Yes, pricing.Sell, 55, 10)))
	assert.Empty(t, rec.crosses())

	require.True(t, b.AddOrder(mustOrder(t, "bid50", pricing.Yes, pricing.Buy, 50, 10)))
	assert.Empty(t, rec.crosses(), "50 below best ask 55")

	require.True(t, b.AddOrder(mustOrder(t, "bid60", pricing.Yes, pricing.Buy, 60, 10)))
	crosses := rec.crosses()
	require.Len(t, crosses, 1)
	assert.Equal(t, "bid60", crosses[0].id)
	assert.True(t, crosses[0].cross.Has(CrossSelf))

	_, ok := b.GetOrder("bid60")
	assert.True(t, ok, "crossing order is still inserted")
}

func TestSelfCrossForNormalizedSell(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "sell-no", pricing.No, pricing.Sell, 35, 1))) // bid 65
	assert.Equal(t, CrossSelf, b.CheckCross(mustOrder(t, "buy-no", pricing.No, pricing.Buy, 36, 1)))
	assert.Equal(t, CrossNone, b.CheckCross(mustOrder(t, "buy-no-2", pricing.No, pricing.Buy, 34, 1)))
}

func TestExternalCross(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "yes65", pricing.Yes, pricing.Buy, 65, 10)))
	require.True(t, b.AddOrder(mustOrder(t, "no36", pricing.No, pricing.Buy, 36, 10)))

	// no36 rests as an ask at 64, which its own insertion sees as a self-cross.
	crosses := rec.crosses()
	require.Len(t, crosses, 1)
	assert.Equal(t, CrossSelf, crosses[0].cross)

	// With both resting, the book itself is externally crossed: 65 + 36 > 100.
	probe := mustOrder(t, "probe", pricing.Yes, pricing.Sell, 99, 1)
	assert.Equal(t, CrossExternal, b.CheckCross(probe))

	require.True(t, b.AddOrder(probe))
	crosses = rec.crosses()
	require.Len(t, crosses, 2)
	assert.Equal(t, "probe", crosses[1].id)
	assert.Equal(t, CrossExternal, crosses[1].cross)
}

func TestExternalCrossBoundary(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "yes60", pricing.Yes, pricing.Buy, 60, 10)))
	require.True(t, b.AddOrder(mustOrder(t, "no40", pricing.No, pricing.Buy, 40, 10)))

	probe := mustOrder(t, "probe", pricing.Yes, pricing.Sell, 99, 1)
	assert.Equal(t, CrossNone, b.CheckCross(probe), "60 + 40 is exactly the payout")
}

func TestExternalCrossUsesBestNoBid(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "yes62", pricing.Yes, pricing.Buy, 62, 1)))
	// a sell-yes ask below the buy-no asks must be skipped
	require.True(t, b.AddOrder(mustOrder(t, "sell-yes", pricing.Yes, pricing.Sell, 63, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "no30", pricing.No, pricing.Buy, 30, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "no39", pricing.No, pricing.Buy, 39, 1)))

	probe := mustOrder(t, "probe", pricing.Yes, pricing.Sell, 99, 1)
	assert.Equal(t, CrossExternal, b.CheckCross(probe), "62 + 39 > 100")

	require.True(t, b.CancelOrder("no39"))
	assert.Equal(t, CrossNone, b.CheckCross(probe), "62 + 30 <= 100")
}

func TestHealthySpreadDoesNotCross(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "bid", pricing.Yes, pricing.Buy, 64, 100)))
	require.True(t, b.AddOrder(mustOrder(t, "ask", pricing.Yes, pricing.Sell, 66, 100)))
	require.True(t, b.AddOrder(mustOrder(t, "no", pricing.No, pricing.Buy, 35, 100)))
	assert.Empty(t, rec.crosses())
}

func TestEventsOrderCrossBeforeAdded(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "ask", pricing.Yes, pricing.Sell, 50, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "bid", pricing.Yes, pricing.Buy, 50, 1)))
	require.True(t, b.CancelOrder("ask"))

	assert.Equal(t, []recorded{
		{kind: "added", id: "ask"},
		{kind: "cross", id: "bid", cross: CrossSelf},
		{kind: "added", id: "bid"},
		{kind: "canceled", id: "ask"},
	}, rec.all())
}

func TestListenerFailuresAreIsolated(t *testing.T) {
	b := NewOrderBook("TEST")
	failing := &ListenerFuncs{Added: func(string, *Order) error { return errors.New("boom") }}
	panicking := &ListenerFuncs{Added: func(string, *Order) error { panic("listener gone") }}
	rec := &recorder{}
	b.AddListener(failing)
	b.AddListener(panicking)
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "x", pricing.Yes, pricing.Buy, 50, 1)))
	assert.Equal(t, []recorded{{kind: "added", id: "x"}}, rec.all())
}

func TestRemoveListener(t *testing.T) {
	b := NewOrderBook("TEST")
	rec := &recorder{}
	b.AddListener(rec)
	assert.True(t, b.RemoveListener(rec))
	assert.False(t, b.RemoveListener(rec))

	require.True(t, b.AddOrder(mustOrder(t, "x", pricing.Yes, pricing.Buy, 50, 1)))
	assert.Empty(t, rec.all())
}

func TestListenerMayReenterBook(t *testing.T) {
	b := NewOrderBook("TEST")
	var seen Snapshot
	b.AddListener(&ListenerFuncs{
		Added: func(_ string, o *Order) error {
			seen = b.Snapshot(5)
			if o.ID() == "transient" {
				b.CancelOrder(o.ID())
			}
			return nil
		},
	})

	require.True(t, b.AddOrder(mustOrder(t, "transient", pricing.Yes, pricing.Buy, 51, 2)))
	assert.Equal(t, []Level{{51, 2}}, seen.Bids, "listener observes the inserted order")
	assert.Equal(t, 0, b.Len())
}


// executor stands in for the execution collaborator: on a self-cross it
// fills the incoming order against the opposite best level and removes
// whatever it drove to zero.
type executor struct {
	ListenerFuncs
	book *OrderBook
}

func newExecutor(b *OrderBook) *executor {
	e := &executor{book: b}
	e.Cross = e.fill
	return e
}

func (e *executor) fill(_ string, in *Order, kind CrossKind) error {
	if !kind.Has(CrossSelf) {
		return nil
	}
	best := e.book.BestAsk
	if !in.IsNormalizedBuy() {
		best = e.book.BestBid
	}
	q, ok := best()
	if !ok {
		return nil
	}
	for _, resting := range q.Orders {
		if in.Remaining() == 0 {
			break
		}
		qty := min(in.Remaining(), resting.Remaining())
		if err := resting.ReduceQuantity(qty); err != nil {
			return err
		}
		if err := in.ReduceQuantity(qty); err != nil {
			return err
		}
		e.book.NotifyOrderExecuted(resting, qty)
		e.book.NotifyOrderExecuted(in, qty)
		if resting.Remaining() == 0 {
			if _, err := e.book.RemoveFilledOrder(resting.ID()); err != nil {
				return err
			}
		}
	}
	if in.Remaining() == 0 {
		_, err := e.book.RemoveFilledOrder(in.ID())
		return err
	}
	return nil
}

func TestExecutionCollaboratorDrivesFills(t *testing.T) {
	b := NewOrderBook("TEST")
	b.AddListener(newExecutor(b))
	rec := &recorder{}
	b.AddListener(rec)

	require.True(t, b.AddOrder(mustOrder(t, "maker1", pricing.Yes, pricing.Sell, 55, 4)))
	require.True(t, b.AddOrder(mustOrder(t, "maker2", pricing.No, pricing.Buy, 45, 6)))
	taker := mustOrder(t, "taker", pricing.Yes, pricing.Buy, 60, 7)
	require.True(t, b.AddOrder(taker))

	var executed []recorded
	for _, ev := range rec.all() {
		if ev.kind == "executed" {
			executed = append(executed, ev)
		}
	}
	assert.Equal(t, []recorded{
		{kind: "executed", id: "maker1", qty: 4},
		{kind: "executed", id: "taker", qty: 4},
		{kind: "executed", id: "maker2", qty: 3},
		{kind: "executed", id: "taker", qty: 3},
	}, executed)

	_, ok := b.GetOrder("maker1")
	assert.False(t, ok, "filled maker removed")
	_, ok = b.GetOrder("taker")
	assert.False(t, ok, "filled taker removed")

	m2, ok := b.GetOrder("maker2")
	require.True(t, ok)
	assert.Equal(t, int64(3), m2.Remaining())

	snap := b.Snapshot(5)
	assert.Empty(t, snap.Bids)
	assert.Equal(t, []Level{{55, 3}}, snap.Asks)
}

func TestRemoveFilledOrder(t *testing.T) {
	b := NewOrderBook("TEST")
	o := mustOrder(t, "f", pricing.Yes, pricing.Buy, 30, 5)
	require.True(t, b.AddOrder(o))

	removed, err := b.RemoveFilledOrder("f")
	assert.False(t, removed)
	assert.True(t, errors.IsAssertionFailure(err))
	_, ok := b.GetOrder("f")
	assert.True(t, ok, "order with quantity open stays")

	require.NoError(t, o.ReduceQuantity(5))
	removed, err = b.RemoveFilledOrder("f")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok = b.BestBid()
	assert.False(t, ok)

	removed, err = b.RemoveFilledOrder("f")
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveFilledOrderEmitsNoEvent(t *testing.T) {
	b := NewOrderBook("TEST")
	o := mustOrder(t, "f", pricing.Yes, pricing.Sell, 70, 1)
	require.True(t, b.AddOrder(o))
	rec := &recorder{}
	b.AddListener(rec)

	require.NoError(t, o.ReduceQuantity(1))
	removed, err := b.RemoveFilledOrder("f")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, rec.all())
}

func TestRemoveEmptyLevels(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "bid", pricing.Yes, pricing.Buy, 30, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "ask", pricing.Yes, pricing.Sell, 70, 1)))

	assert.False(t, b.RemoveEmptyBidLevel(30), "level still holds an order")
	assert.False(t, b.RemoveEmptyAskLevel(70), "level still holds an order")
	assert.False(t, b.RemoveEmptyBidLevel(31), "no such level")

	b.mu.Lock()
	b.bids.UpsertLevel(20)
	b.asks.UpsertLevel(80)
	b.mu.Unlock()

	assert.True(t, b.RemoveEmptyBidLevel(20))
	assert.True(t, b.RemoveEmptyAskLevel(80))
	bids, asks := b.Depth()
	assert.Equal(t, 1, bids)
	assert.Equal(t, 1, asks)
}

func TestSnapshotAggregatesAndLimitsDepth(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "b1", pricing.Yes, pricing.Buy, 40, 10)))
	require.True(t, b.AddOrder(mustOrder(t, "b2", pricing.Yes, pricing.Buy, 40, 5)))
	require.True(t, b.AddOrder(mustOrder(t, "b3", pricing.Yes, pricing.Buy, 38, 1)))
	require.True(t, b.AddOrder(mustOrder(t, "b4", pricing.Yes, pricing.Buy, 35, 2)))
	require.True(t, b.AddOrder(mustOrder(t, "a1", pricing.Yes, pricing.Sell, 60, 3)))

	snap := b.Snapshot(2)
	assert.Equal(t, "TEST", snap.Ticker)
	assert.Equal(t, b.Version(), snap.Version)
	assert.Equal(t, []Level{{40, 15}, {38, 1}}, snap.Bids)
	assert.Equal(t, []Level{{60, 3}}, snap.Asks)

	empty := b.Snapshot(0)
	assert.NotNil(t, empty.Bids)
	assert.Empty(t, empty.Bids)
	assert.Empty(t, empty.Asks)
}

func TestVersionTracksBookChanges(t *testing.T) {
	b := NewOrderBook("TEST")
	v0 := b.Version()
	require.True(t, b.AddOrder(mustOrder(t, "x", pricing.Yes, pricing.Buy, 40, 1)))
	v1 := b.Version()
	assert.Greater(t, v1, v0)

	assert.False(t, b.CancelOrder("nope"))
	assert.Equal(t, v1, b.Version())

	x, _ := b.GetOrder("x")
	require.NoError(t, x.ReduceQuantity(1))
	b.NotifyOrderExecuted(x, 1)
	v2 := b.Version()
	assert.Greater(t, v2, v1, "a reported fill changes snapshot quantities")

	removed, err := b.RemoveFilledOrder("x")
	require.NoError(t, err)
	require.True(t, removed)
	assert.Greater(t, b.Version(), v2)
}

func TestMarketViewMixedOrders(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "y1", pricing.Yes, pricing.Buy, 45, 10)))
	require.True(t, b.AddOrder(mustOrder(t, "y2", pricing.Yes, pricing.Buy, 45, 5)))
	require.True(t, b.AddOrder(mustOrder(t, "y3", pricing.Yes, pricing.Buy, 40, 3)))
	require.True(t, b.AddOrder(mustOrder(t, "sn", pricing.No, pricing.Sell, 50, 6)))
	require.True(t, b.AddOrder(mustOrder(t, "n1", pricing.No, pricing.Buy, 30, 7)))
	require.True(t, b.AddOrder(mustOrder(t, "n2", pricing.No, pricing.Buy, 35, 2)))
	require.True(t, b.AddOrder(mustOrder(t, "sy", pricing.Yes, pricing.Sell, 80, 4)))

	view := b.MarketView(10)
	assert.Equal(t, "TEST", view.Ticker)
	assert.Equal(t, []Level{{50, 6}, {45, 15}, {40, 3}}, view.Yes, "sell no @50 shows as a yes bid at 50")
	assert.Equal(t, []Level{{35, 2}, {30, 7}}, view.No, "sell yes asks have no no-bid form")

	top := b.MarketView(1)
	assert.Equal(t, []Level{{50, 6}}, top.Yes)
	assert.Equal(t, []Level{{35, 2}}, top.No)

	none := b.MarketView(0)
	assert.NotNil(t, none.No)
	assert.Empty(t, none.Yes)
	assert.Empty(t, none.No)
}

func TestMarketViewSharedAskLevel(t *testing.T) {
	b := NewOrderBook("TEST")
	require.True(t, b.AddOrder(mustOrder(t, "sy", pricing.Yes, pricing.Sell, 70, 4)))
	require.True(t, b.AddOrder(mustOrder(t, "bn", pricing.No, pricing.Buy, 30, 9)))

	view := b.MarketView(5)
	assert.Equal(t, []Level{{30, 9}}, view.No, "only buy-no quantity counts")
	assert.Equal(t, []Level{{70, 13}}, b.Snapshot(5).Asks)
}

func TestSequenceIsGlobalAcrossBooks(t *testing.T) {
	a, c := NewOrderBook("A"), NewOrderBook("C")
	var last uint64
	for i := 0; i < 10; i++ {
		book := a
		if i%2 == 1 {
			book = c
		}
		o := mustOrder(t, fmt.Sprintf("g%d", i), pricing.Yes, pricing.Buy, 10+i, 1)
		require.True(t, book.AddOrder(o))
		assert.Greater(t, o.Seq(), last)
		last = o.Seq()
	}
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, 5, c.Len())
}
