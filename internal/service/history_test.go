package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/rocketscienceinc/tictactoe-solo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepo struct{}

func (failingRepo) Save(context.Context, *entity.GameRecord) error {
	return errors.New("disk full")
}

func (failingRepo) List(context.Context, int) ([]*entity.GameRecord, error) {
	return nil, errors.New("disk full")
}

func playedEvents(gameID string, started time.Time) []entity.Event {
	return []entity.Event{
		{Kind: entity.EventStart, GameID: gameID, Time: started, FirstPlayer: entity.PlayerCPU, HumanMark: o, CPUMark: x},
		{Kind: entity.EventMove, GameID: gameID, Time: started, Move: &entity.Move{Player: entity.PlayerCPU, Mark: x, Position: 4}},
		{Kind: entity.EventMove, GameID: gameID, Time: started, Move: &entity.Move{Player: entity.PlayerHuman, Mark: o, Position: 0}},
		{Kind: entity.EventFinish, GameID: gameID, Time: started.Add(time.Minute), Result: &entity.Result{Outcome: entity.OutcomeDraw}, Winner: entity.ResultDraw},
	}
}

func TestHistoryService_RecordEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Finished game is saved", func(t *testing.T) {
		// Given: a history service over an in-memory store
		history := NewHistoryService(discardLogger(), repository.NewMemoryGameRepository())
		started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

		// When: a whole game is recorded
		for _, event := range playedEvents("g1", started) {
			history.RecordEvent(event)
		}

		// Then: one record holds the full game
		records, err := history.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 1)

		expected := &entity.GameRecord{
			ID:          "g1",
			StartTime:   started,
			EndTime:     started.Add(time.Minute),
			FirstPlayer: entity.PlayerCPU,
			HumanMark:   o,
			CPUMark:     x,
			Moves: []entity.Move{
				{Player: entity.PlayerCPU, Mark: x, Position: 4},
				{Player: entity.PlayerHuman, Mark: o, Position: 0},
			},
			Winner: entity.ResultDraw,
		}
		assert.Equal(t, expected, records[0])
	})

	t.Run("Unfinished game is not saved", func(t *testing.T) {
		history := NewHistoryService(discardLogger(), repository.NewMemoryGameRepository())

		events := playedEvents("g2", time.Now())
		for _, event := range events[:len(events)-1] {
			history.RecordEvent(event)
		}

		records, err := history.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Events for unknown games are ignored", func(t *testing.T) {
		history := NewHistoryService(discardLogger(), repository.NewMemoryGameRepository())

		events := playedEvents("g3", time.Now())
		for _, event := range events[1:] {
			history.RecordEvent(event)
		}

		records, err := history.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Abandoned games are dropped", func(t *testing.T) {
		// Given: many games started and left after one move
		history := NewHistoryService(discardLogger(), repository.NewMemoryGameRepository())

		// When: each one is abandoned
		for i := 0; i < 1000; i++ {
			gameID := fmt.Sprintf("abandoned-%d", i)
			events := playedEvents(gameID, time.Now())
			history.RecordEvent(events[0])
			history.RecordEvent(events[1])
			history.RecordEvent(entity.Event{Kind: entity.EventAbandon, GameID: gameID, Time: time.Now()})
		}

		// Then: nothing is held and nothing is saved
		history.mu.Lock()
		assert.Empty(t, history.pending)
		history.mu.Unlock()

		records, err := history.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Storage failure does not panic", func(t *testing.T) {
		history := NewHistoryService(discardLogger(), failingRepo{})

		assert.NotPanics(t, func() {
			for _, event := range playedEvents("g4", time.Now()) {
				history.RecordEvent(event)
			}
		})

		_, err := history.Recent(ctx, 10)
		assert.Error(t, err)
	})
}
