// Package advices journals emitted advice to a write-ahead log.
package advices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

const (
	DefaultDir   = "./wal/advices"
	segmentLimit = 100
	maxSegments  = 10

	adviceKeyPrefix = "advice_"
)

// WALStore persists advice events in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed advice journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "advice_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init advice WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save writes the advice to the WAL.
func (s *WALStore) Save(advice domain.Advice) error {
	if s == nil || s.wal == nil {
		return errors.New("advice store is not initialized")
	}
	if advice.Pair == "" {
		return fmt.Errorf("advice pair is required")
	}

	payload, err := json.Marshal(advice)
	if err != nil {
		return errors.Wrap(err, "marshal advice")
	}

	key := fmt.Sprintf("%s%s", adviceKeyPrefix, advice.Pair)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// ProcessAdvice journals advice published on the bus.
func (s *WALStore) ProcessAdvice(_ context.Context, advice domain.Advice) error {
	return s.Save(advice)
}

// EventsAfter returns all advice written after the provided WAL index.
func (s *WALStore) EventsAfter(index uint64) ([]domain.AdviceRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("advice store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.AdviceRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, adviceKeyPrefix) {
			continue
		}

		var advice domain.Advice
		if err := json.Unmarshal(payload, &advice); err != nil {
			return nil, errors.Wrap(err, "decode advice")
		}
		records = append(records, domain.AdviceRecord{Index: idx, Advice: advice})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("advice store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
