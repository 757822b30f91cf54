package orderbook

// priceLevel is a FIFO queue at a single normalized price. Orders are only
// ever appended at the tail, so the queue is in the order AddOrder took the
// write lock. Sequence numbers are taken at construction, outside the lock,
// and can therefore trail arrival under concurrent callers.
type priceLevel struct {
	price int
	head  *Order
	tail  *Order
	count int
}

func (p *priceLevel) enqueue(o *Order) {
	o.level = p
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.count++
}

func (p *priceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.level = nil
	p.count--
}

func (p *priceLevel) empty() bool {
	return p.head == nil
}

// totalRemaining sums what is still open at this level.
func (p *priceLevel) totalRemaining() int64 {
	var total int64
	for o := p.head; o != nil; o = o.next {
		total += o.Remaining()
	}
	return total
}

// orders copies the queue head to tail.
func (p *priceLevel) orders() []*Order {
	out := make([]*Order, 0, p.count)
	for o := p.head; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}
