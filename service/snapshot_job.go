package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"predex/domain/orderbook"
)

// SnapshotSink receives periodic book snapshots.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, snap orderbook.Snapshot) error
}

// StartSnapshotJob publishes a snapshot of depth levels every interval, but
// only when the book changed since the last successful publish. The
// returned channel is closed once the job has stopped.
func (s *OrderService) StartSnapshotJob(
	ctx context.Context,
	sink SnapshotSink,
	interval time.Duration,
	depth int,
) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()

		var last uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				last = s.publishIfChanged(ctx, sink, depth, last)
			}
		}
	}()
	return done
}

func (s *OrderService) publishIfChanged(ctx context.Context, sink SnapshotSink, depth int, last uint64) uint64 {
	snap := s.book.Snapshot(depth)
	if snap.Version == last {
		return last
	}
	if err := sink.PublishSnapshot(ctx, snap); err != nil {
		s.logger.WithError(err).WithField("version", snap.Version).Warn("snapshot publish failed")
		return last
	}
	s.logger.WithFields(log.Fields{
		"version": snap.Version,
		"bids":    len(snap.Bids),
		"asks":    len(snap.Asks),
	}).Debug("snapshot published")
	return snap.Version
}
