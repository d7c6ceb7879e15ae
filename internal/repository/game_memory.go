package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
)

type memoryGame struct {
	mu      sync.RWMutex
	games   map[string]*entity.GameRecord
	ordered []string
}

// NewMemoryGameRepository keeps history for the lifetime of the process.
func NewMemoryGameRepository() GameRepository {
	return &memoryGame{
		games: make(map[string]*entity.GameRecord),
	}
}

func (that *memoryGame) Save(_ context.Context, record *entity.GameRecord) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[record.ID]; !ok {
		that.ordered = append(that.ordered, record.ID)
	}
	that.games[record.ID] = copyRecord(record)

	return nil
}

func (that *memoryGame) GetByID(_ context.Context, id string) (*entity.GameRecord, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	record, ok := that.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}

	return copyRecord(record), nil
}

func (that *memoryGame) List(_ context.Context, limit int) ([]*entity.GameRecord, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	records := make([]*entity.GameRecord, 0, min(max(limit, 0), len(that.ordered)))
	for i := len(that.ordered) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, copyRecord(that.games[that.ordered[i]]))
	}

	return records, nil
}

func copyRecord(record *entity.GameRecord) *entity.GameRecord {
	clone := *record
	clone.Moves = append([]entity.Move(nil), record.Moves...)
	return &clone
}
