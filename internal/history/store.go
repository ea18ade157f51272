// Package history keeps the record of completed creations.
package history

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"

	"cartoonify/internal/domain"
	"cartoonify/internal/infra"
)

// Options configures a Store.
type Options struct {
	// Repository, when set, receives every appended entry.
	Repository domain.HistoryRepository
	Logger     *infra.Logger
}

// Store is an append-only, process-wide list of history entries.
type Store struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
	repo    domain.HistoryRepository
	logger  zerolog.Logger
}

// NewStore constructs an empty store.
func NewStore(opts Options) *Store {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Store{repo: opts.Repository, logger: logger}
}

// Load seeds the store with up to limit entries from the repository. It is
// meant to run once at startup, before any Append.
func (s *Store) Load(ctx context.Context, limit int) error {
	if s.repo == nil {
		return nil
	}
	recent, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("history: load: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// ListRecent is newest first; the store keeps insertion order.
	s.entries = make([]domain.HistoryEntry, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		s.entries = append(s.entries, recent[i])
	}
	return nil
}

// Append adds entry at the end of the history. The in-memory append always
// succeeds; a repository failure is returned after the entry is recorded.
func (s *Store) Append(ctx context.Context, entry domain.HistoryEntry) error {
	s.Record(entry)
	return s.Persist(ctx, entry)
}

// Record adds entry to the in-memory history without touching the repository.
func (s *Store) Record(entry domain.HistoryEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// Persist writes an already recorded entry to the repository, if any.
func (s *Store) Persist(ctx context.Context, entry domain.HistoryEntry) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("history_id", entry.ID).Msg("history: persist entry failed")
		return fmt.Errorf("history: persist: %w", err)
	}
	return nil
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// List yields entries newest first. The sequence covers the entries present
// when iteration starts and can be ranged over any number of times.
func (s *Store) List() iter.Seq[domain.HistoryEntry] {
	return func(yield func(domain.HistoryEntry) bool) {
		s.mu.RLock()
		n := len(s.entries)
		s.mu.RUnlock()
		for i := n - 1; i >= 0; i-- {
			s.mu.RLock()
			entry := s.entries[i]
			s.mu.RUnlock()
			if !yield(entry) {
				return
			}
		}
	}
}

// Recent collects at most limit entries from List. A non-positive limit
// returns every entry.
func (s *Store) Recent(limit int) []domain.HistoryEntry {
	var out []domain.HistoryEntry
	for entry := range s.List() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, entry)
	}
	return out
}
