package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
)

const saveTimeout = 5 * time.Second

type gameRepo interface {
	Save(ctx context.Context, record *entity.GameRecord) error
	List(ctx context.Context, limit int) ([]*entity.GameRecord, error)
}

// HistoryService collects game events into records and persists finished games.
type HistoryService struct {
	logger   *slog.Logger
	gameRepo gameRepo

	mu      sync.Mutex
	pending map[string]*entity.GameRecord
}

func NewHistoryService(logger *slog.Logger, gameRepo gameRepo) *HistoryService {
	return &HistoryService{
		logger:   logger.With("component", "history"),
		gameRepo: gameRepo,
		pending:  make(map[string]*entity.GameRecord),
	}
}

// RecordEvent never fails the game: storage problems are only logged.
func (that *HistoryService) RecordEvent(event entity.Event) {
	log := that.logger.With("method", "RecordEvent", "gameID", event.GameID, "kind", event.Kind)

	switch event.Kind {
	case entity.EventStart:
		that.mu.Lock()
		that.pending[event.GameID] = &entity.GameRecord{
			ID:          event.GameID,
			StartTime:   event.Time,
			FirstPlayer: event.FirstPlayer,
			HumanMark:   event.HumanMark,
			CPUMark:     event.CPUMark,
			Moves:       []entity.Move{},
		}
		that.mu.Unlock()

		log.Info("game started", "firstPlayer", event.FirstPlayer)

	case entity.EventMove:
		if event.Move == nil {
			log.Warn("move event without a move")
			return
		}

		that.mu.Lock()
		record, ok := that.pending[event.GameID]
		if ok {
			record.Moves = append(record.Moves, *event.Move)
		}
		that.mu.Unlock()

		if !ok {
			log.Warn("move for unknown game")
			return
		}

		log.Debug("move recorded", "player", event.Move.Player, "position", event.Move.Position)

	case entity.EventFinish:
		that.mu.Lock()
		record, ok := that.pending[event.GameID]
		delete(that.pending, event.GameID)
		that.mu.Unlock()

		if !ok {
			log.Warn("finish for unknown game")
			return
		}

		record.EndTime = event.Time
		record.Winner = event.Winner

		if err := that.save(record); err != nil {
			log.Error("failed to save game", "error", err)
			return
		}

		log.Info("game finished", "winner", record.Winner, "moves", len(record.Moves))

	case entity.EventAbandon:
		that.mu.Lock()
		_, ok := that.pending[event.GameID]
		delete(that.pending, event.GameID)
		that.mu.Unlock()

		if !ok {
			log.Warn("abandon for unknown game")
			return
		}

		log.Info("game abandoned")

	default:
		log.Warn("unknown event kind")
	}
}

func (that *HistoryService) save(record *entity.GameRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := that.gameRepo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save game record: %w", err)
	}

	return nil
}

// Recent returns up to limit finished games, newest first.
func (that *HistoryService) Recent(ctx context.Context, limit int) ([]*entity.GameRecord, error) {
	records, err := that.gameRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list game records: %w", err)
	}

	return records, nil
}
