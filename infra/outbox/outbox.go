// Package outbox persists book events in pebble until the broadcaster has
// delivered them. Each entry moves NEW -> SENT -> ACKED, or to FAILED once
// its retries are exhausted.
package outbox

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound      = errors.New("outbox: record not found")
	ErrCorruptRecord = errors.New("outbox: corrupt record")
)

// -------------------- State --------------------

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

const headerLen = 1 + 4 + 8 + 4

// binary encoding: [state:1][retries:4][lastAttempt:8][crc32(payload):4][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint32(buf[13:17], crc32.ChecksumIEEE(r.Payload))
	copy(buf[headerLen:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "seq %d: %d bytes", seq, len(b))
	}
	if sum := binary.BigEndian.Uint32(b[13:17]); crc32.ChecksumIEEE(b[headerLen:]) != sum {
		return Record{}, errors.Wrapf(ErrCorruptRecord, "seq %d: checksum mismatch", seq)
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     bytes.Clone(b[headerLen:]),
	}, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db     *pebble.DB
	seq    atomic.Uint64
	logger *log.Entry
}

// Open opens or creates the outbox in dir. opts may be nil; tests pass an
// in-memory vfs through it.
func Open(dir string, opts *pebble.Options) (*Outbox, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open outbox %s", dir)
	}
	o := &Outbox{db: db, logger: log.WithField("component", "outbox")}
	last, err := o.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	o.seq.Store(last)
	return o, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// Append stores payload as a NEW entry and returns its sequence.
func (o *Outbox) Append(payload []byte) (uint64, error) {
	seq := o.seq.Add(1)
	rec := Record{State: StateNew, Payload: payload}
	if err := o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync); err != nil {
		return 0, errors.Wrapf(err, "append outbox entry %d", seq)
	}
	return seq, nil
}

// Get returns the current record for seq.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, errors.Wrapf(ErrNotFound, "seq %d", seq)
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

// UpdateState rewrites the state header of seq, keeping its payload.
func (o *Outbox) UpdateState(seq uint64, state State, retries uint32) error {
	rec, err := o.Get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// Delete removes an entry.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

// PruneAcked deletes every ACKED entry in one batch and reports how many
// were removed.
func (o *Outbox) PruneAcked() (int, error) {
	batch := o.db.NewBatch()
	defer batch.Close()

	n := 0
	err := o.ScanByState(StateAcked, func(rec Record) error {
		n++
		return batch.Delete(keyFor(rec.Seq), nil)
	})
	if err != nil || n == 0 {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "prune acked outbox entries")
	}
	return n, nil
}

// -------------------- Scan --------------------

// ScanByState iterates, in sequence order, all records in the given state.
// Corrupt records are logged and skipped so they never block later entries.
func (o *Outbox) ScanByState(state State, fn func(rec Record) error) error {
	return o.scan(func(rec Record) bool { return rec.State == state }, fn)
}

// ScanPending iterates NEW and SENT records. A SENT record was handed to the
// broker without an ack being recorded, so it is delivered again.
func (o *Outbox) ScanPending(fn func(rec Record) error) error {
	return o.scan(func(rec Record) bool {
		return rec.State == StateNew || rec.State == StateSent
	}, fn)
}

func (o *Outbox) scan(match func(Record) bool, fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			o.logger.WithError(err).Error("skipping outbox key")
			continue
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			o.logger.WithError(err).WithField("seq", seq).Error("skipping corrupt outbox entry")
			continue
		}
		if !match(rec) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (o *Outbox) lastSeq() (uint64, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// -------------------- Helpers --------------------

const keyPrefix = "event/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq); err != nil {
		return 0, errors.Wrapf(ErrCorruptRecord, "key %q", b)
	}
	return seq, nil
}
