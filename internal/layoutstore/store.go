package layoutstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/dgnsrekt/chartbridge/internal/layout"
)

// storageKey is the single process-wide slot. The store keeps no history and
// no per-symbol partitioning: the same drawn-tool layout is replayed across
// symbol switches and filtered at query time instead.
const storageKey = "tradingview_layout_global"

// Store persists the last-known chart layout. Persistence is never on a
// critical path, so every operation is best-effort: failures are logged and
// swallowed.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the layout database in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("layoutstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save overwrites the stored layout with the given snapshot.
func (s *Store) Save(l layout.Layout) {
	if len(l) == 0 {
		return
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(storageKey), []byte(l))
	})
	if err != nil {
		slog.Warn("layout save failed", "error", err)
	}
}

// Load returns the stored layout, or nil when no layout was saved yet or the
// stored value cannot be read back.
func (s *Store) Load() layout.Layout {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(storageKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		slog.Warn("layout load failed", "error", err)
		return nil
	}
	if !json.Valid(data) {
		slog.Warn("stored layout is not valid JSON, treating as absent")
		return nil
	}
	return layout.Layout(data)
}
