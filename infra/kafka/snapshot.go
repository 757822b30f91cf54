package kafka

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"predex/domain/orderbook"
)

// SnapshotMessage is the msgpack body of a published book snapshot.
type SnapshotMessage struct {
	Ticker  string     `msgpack:"ticker"`
	Version uint64     `msgpack:"version"`
	At      int64      `msgpack:"at"`
	Bids    [][2]int64 `msgpack:"bids"`
	Asks    [][2]int64 `msgpack:"asks"`
}

func levels(in []orderbook.Level) [][2]int64 {
	out := make([][2]int64, len(in))
	for i, l := range in {
		out[i] = [2]int64{int64(l.Price), l.Quantity}
	}
	return out
}

// PublishSnapshot sends snap keyed by ticker, so every snapshot of a market
// lands on the same partition.
func (p *Producer) PublishSnapshot(ctx context.Context, snap orderbook.Snapshot) error {
	body, err := msgpack.Marshal(&SnapshotMessage{
		Ticker:  snap.Ticker,
		Version: snap.Version,
		At:      time.Now().UnixNano(),
		Bids:    levels(snap.Bids),
		Asks:    levels(snap.Asks),
	})
	if err != nil {
		return errors.Wrapf(err, "encode snapshot %s@%d", snap.Ticker, snap.Version)
	}
	return p.Send(ctx, []byte(snap.Ticker), body)
}
