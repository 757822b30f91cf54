// Package broadcaster drains the event outbox to Kafka.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"predex/infra/outbox"
)

const (
	DefaultInterval   = 250 * time.Millisecond
	DefaultMaxRetries = 5
)

type Broadcaster struct {
	outbox     *outbox.Outbox
	producer   sarama.SyncProducer
	topic      string
	interval   time.Duration
	maxRetries uint32
	logger     *log.Entry
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

// NewSyncProducer dials brokers with acks from all in-sync replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "sarama producer %v", brokers)
	}
	return producer, nil
}

// New takes ownership of producer; Close closes it. A zero interval uses
// DefaultInterval.
func New(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster{
		outbox:     ob,
		producer:   producer,
		topic:      topic,
		interval:   interval,
		maxRetries: DefaultMaxRetries,
		logger: log.WithFields(log.Fields{
			"component": "broadcaster",
			"topic":     topic,
		}),
	}
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

// Start drains the outbox every interval until ctx is done. The returned
// channel is closed once the loop has exited.
func (b *Broadcaster) Start(ctx context.Context) <-chan struct{} {
	b.logger.Info("broadcaster started")

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				b.logger.Info("broadcaster stopped")
				return

			case <-ticker.C:
				if _, err := b.DrainOnce(); err != nil {
					b.logger.WithError(err).Warn("outbox drain failed")
				}
			}
		}
	}()
	return done
}

// ------------------------------------------------
// DRAIN
// ------------------------------------------------

// DrainOnce publishes every pending entry and prunes acknowledged ones. It
// returns the number of entries acked in this pass. A publish failure only
// bumps the entry's retry count; after maxRetries it is parked as FAILED.
func (b *Broadcaster) DrainOnce() (int, error) {
	acked := 0
	err := b.outbox.ScanPending(func(rec outbox.Record) error {
		if err := b.outbox.UpdateState(rec.Seq, outbox.StateSent, rec.Retries); err != nil {
			return err
		}

		msg, err := b.message(rec)
		if err != nil {
			b.logger.WithError(err).WithField("seq", rec.Seq).Error("undecodable outbox entry")
			return b.outbox.UpdateState(rec.Seq, outbox.StateFailed, rec.Retries)
		}

		if _, _, err := b.producer.SendMessage(msg); err != nil {
			retries := rec.Retries + 1
			state := outbox.StateNew
			if retries >= b.maxRetries {
				state = outbox.StateFailed
			}
			b.logger.WithError(err).WithFields(log.Fields{
				"seq":     rec.Seq,
				"retries": retries,
				"state":   state.String(),
			}).Warn("publish failed")
			return b.outbox.UpdateState(rec.Seq, state, retries)
		}

		acked++
		return b.outbox.UpdateState(rec.Seq, outbox.StateAcked, rec.Retries)
	})
	if err != nil {
		return acked, errors.Wrap(err, "drain outbox")
	}

	if _, err := b.outbox.PruneAcked(); err != nil {
		return acked, errors.Wrap(err, "prune outbox")
	}
	return acked, nil
}

func (b *Broadcaster) message(rec outbox.Record) (*sarama.ProducerMessage, error) {
	ev, err := outbox.DecodeEvent(rec.Payload)
	if err != nil {
		return nil, err
	}
	return &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(ev.Ticker),
		Value: sarama.ByteEncoder(rec.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}, nil
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
