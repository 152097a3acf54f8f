// Package eventlog persists emitted lottery notifications in LevelDB so they
// can be read back by height after the block that produced them is committed.
package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blockberries/lottoberry/pkg/abi"
)

// Event log errors.
var (
	ErrHeightNotAfterLast = errors.New("height must be greater than the last logged height")
	ErrInvalidRange       = errors.New("invalid height range")
	ErrLogClosed          = errors.New("event log is closed")
)

// Key layout.
var (
	prefixEvent   = []byte("E:") // E:<height><tx index><event index> -> Record
	keyMetaHeight = []byte("M:height")
)

// Record is one logged event with its position in the chain.
type Record struct {
	Height     uint64      `cramberry:"1"`
	TxIndex    uint32      `cramberry:"2"`
	Index      uint32      `cramberry:"3"`
	TxHash     []byte      `cramberry:"4"`
	Type       string      `cramberry:"5"`
	Attributes []Attribute `cramberry:"6"`
}

// Attribute is a logged event attribute.
type Attribute struct {
	Key   string `cramberry:"1"`
	Value []byte `cramberry:"2"`
}

// NewRecord builds a record for event at the given position.
func NewRecord(height uint64, txIndex, index uint32, txHash []byte, event abi.Event) Record {
	attrs := make([]Attribute, len(event.Attributes))
	for i, a := range event.Attributes {
		attrs[i] = Attribute{Key: a.Key, Value: a.Value}
	}
	return Record{
		Height:     height,
		TxIndex:    txIndex,
		Index:      index,
		TxHash:     txHash,
		Type:       event.Type,
		Attributes: attrs,
	}
}

// Event converts the record back into an event.
func (r Record) Event() abi.Event {
	e := abi.NewEvent(r.Type)
	for _, a := range r.Attributes {
		e = e.AddAttribute(a.Key, a.Value)
	}
	return e
}

// Log is an append-only event log backed by LevelDB.
type Log struct {
	db         *leveldb.DB
	lastHeight uint64
	closed     bool
	mu         sync.RWMutex
}

// Open opens or creates an event log at path.
func Open(path string) (*Log, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("opening leveldb: %w", err)
	}
	return newLog(db)
}

// OpenMemory opens an event log held entirely in memory.
func OpenMemory() (*Log, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening memory leveldb: %w", err)
	}
	return newLog(db)
}

func newLog(db *leveldb.DB) (*Log, error) {
	l := &Log{db: db}
	data, err := db.Get(keyMetaHeight, nil)
	switch {
	case err == nil:
		if len(data) != 8 {
			db.Close()
			return nil, fmt.Errorf("corrupt height metadata: %d bytes", len(data))
		}
		l.lastHeight = binary.BigEndian.Uint64(data)
	case errors.Is(err, leveldb.ErrNotFound):
	default:
		db.Close()
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	return l, nil
}

// Append writes the records of one height in a single batch.
// Heights must be strictly increasing; a height may carry no records.
func (l *Log) Append(height uint64, records []Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	if height <= l.lastHeight {
		return fmt.Errorf("%w: got %d, last %d", ErrHeightNotAfterLast, height, l.lastHeight)
	}

	batch := new(leveldb.Batch)
	for _, rec := range records {
		rec.Height = height
		data, err := cramberry.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		batch.Put(makeEventKey(height, rec.TxIndex, rec.Index), data)
	}
	batch.Put(keyMetaHeight, encodeUint64(height))

	if err := l.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}
	l.lastHeight = height
	return nil
}

// LastHeight returns the highest height appended, or 0.
func (l *Log) LastHeight() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastHeight
}

// Truncate removes every record above height and rewinds the last height to it.
// Truncating at or above the last height is a no-op.
func (l *Log) Truncate(height uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}
	if height >= l.lastHeight {
		return nil
	}

	batch := new(leveldb.Batch)
	iter := l.db.NewIterator(&util.Range{
		Start: heightPrefix(height + 1),
		Limit: util.BytesPrefix(prefixEvent).Limit,
	}, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterating events: %w", err)
	}
	if height == 0 {
		batch.Delete(keyMetaHeight)
	} else {
		batch.Put(keyMetaHeight, encodeUint64(height))
	}

	if err := l.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("truncating events: %w", err)
	}
	l.lastHeight = height
	return nil
}

// ByHeight returns the records logged at height in order.
func (l *Log) ByHeight(height uint64) ([]Record, error) {
	return l.Range(height, height)
}

// Range returns the records logged in [from, to] in order.
func (l *Log) Range(from, to uint64) ([]Record, error) {
	return l.Search(from, to, nil)
}

// Search returns the records in [from, to] whose event matches query.
// A nil query matches everything.
func (l *Log) Search(from, to uint64, query abi.Query) ([]Record, error) {
	if from > to {
		return nil, fmt.Errorf("%w: from %d > to %d", ErrInvalidRange, from, to)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrLogClosed
	}

	rng := &util.Range{Start: heightPrefix(from)}
	if to < ^uint64(0) {
		rng.Limit = heightPrefix(to + 1)
	} else {
		rng.Limit = util.BytesPrefix(prefixEvent).Limit
	}

	iter := l.db.NewIterator(rng, nil)
	defer iter.Release()

	var out []Record
	for iter.Next() {
		var rec Record
		if err := cramberry.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		if query != nil && !query.Matches(rec.Event()) {
			continue
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

// Close closes the log.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

func heightPrefix(height uint64) []byte {
	key := make([]byte, len(prefixEvent)+8)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], height)
	return key
}

func makeEventKey(height uint64, txIndex, index uint32) []byte {
	key := make([]byte, len(prefixEvent)+16)
	copy(key, prefixEvent)
	binary.BigEndian.PutUint64(key[len(prefixEvent):], height)
	binary.BigEndian.PutUint32(key[len(prefixEvent)+8:], txIndex)
	binary.BigEndian.PutUint32(key[len(prefixEvent)+12:], index)
	return key
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
