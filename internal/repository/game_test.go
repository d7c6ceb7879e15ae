package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/rocketscienceinc/tictactoe-solo/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string, end time.Time) *entity.GameRecord {
	return &entity.GameRecord{
		ID:          id,
		StartTime:   end.Add(-time.Minute),
		EndTime:     end,
		FirstPlayer: entity.PlayerHuman,
		HumanMark:   entity.PlayerX,
		CPUMark:     entity.PlayerO,
		Moves: []entity.Move{
			{Player: entity.PlayerHuman, Mark: entity.PlayerX, Position: 0},
			{Player: entity.PlayerCPU, Mark: entity.PlayerO, Position: 4},
		},
		Winner: entity.PlayerCPU,
	}
}

func assertSameRecord(t *testing.T, expected, actual *entity.GameRecord) {
	t.Helper()

	assert.Equal(t, expected.ID, actual.ID)
	assert.True(t, expected.StartTime.Equal(actual.StartTime), "start time %v != %v", expected.StartTime, actual.StartTime)
	assert.True(t, expected.EndTime.Equal(actual.EndTime), "end time %v != %v", expected.EndTime, actual.EndTime)
	assert.Equal(t, expected.FirstPlayer, actual.FirstPlayer)
	assert.Equal(t, expected.HumanMark, actual.HumanMark)
	assert.Equal(t, expected.CPUMark, actual.CPUMark)
	assert.Equal(t, expected.Moves, actual.Moves)
	assert.Equal(t, expected.Winner, actual.Winner)
}

// testGameRepository is shared by every backend.
func testGameRepository(t *testing.T, ctx context.Context, gameRepo GameRepository) {
	t.Helper()

	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	t.Run("Save and GetByID", func(t *testing.T) {
		// Given: a finished game record
		record := newRecord("get-1", base)

		// When: it is saved and read back
		err := gameRepo.Save(ctx, record)
		require.NoError(t, err)

		retrieved, err := gameRepo.GetByID(ctx, record.ID)

		// Then: the stored record matches
		require.NoError(t, err)
		assertSameRecord(t, record, retrieved)
	})

	t.Run("GetByID not found", func(t *testing.T) {
		retrieved, err := gameRepo.GetByID(ctx, "9999999")

		require.ErrorIs(t, err, ErrGameNotFound)
		assert.Nil(t, retrieved)
	})

	t.Run("List newest first with limit", func(t *testing.T) {
		// Given: five more games finished one minute apart
		for i := 0; i < 5; i++ {
			record := newRecord(fmt.Sprintf("list-%d", i), base.Add(time.Duration(i+1)*time.Minute))
			require.NoError(t, gameRepo.Save(ctx, record))
		}

		// When: listing the last three
		records, err := gameRepo.List(ctx, 3)

		// Then: the three newest come back in reverse order
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "list-4", records[0].ID)
		assert.Equal(t, "list-3", records[1].ID)
		assert.Equal(t, "list-2", records[2].ID)
	})

	t.Run("Saving again does not duplicate", func(t *testing.T) {
		record := newRecord("list-4", base.Add(5*time.Minute))
		record.Winner = entity.ResultDraw
		require.NoError(t, gameRepo.Save(ctx, record))

		records, err := gameRepo.List(ctx, 100)

		require.NoError(t, err)
		assert.Len(t, records, 6)
		assert.Equal(t, entity.ResultDraw, records[0].Winner)
	})

	t.Run("Non-positive limit is empty", func(t *testing.T) {
		records, err := gameRepo.List(ctx, 0)

		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestMemoryGameRepository(t *testing.T) {
	testGameRepository(t, context.Background(), NewMemoryGameRepository())
}

func TestMemoryGameRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	gameRepo := NewMemoryGameRepository()
	record := newRecord("copy", time.Now())
	require.NoError(t, gameRepo.Save(ctx, record))

	// When: the caller changes its record after saving
	record.Moves[0].Position = 8

	// Then: the stored copy is unchanged
	stored, err := gameRepo.GetByID(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Moves[0].Position)
}

func TestSQLiteGameRepository(t *testing.T) {
	ctx, st := suite.NewSQLite(t)

	testGameRepository(t, ctx, NewSQLiteGameRepository(st.Connection))
}

func TestRedisGameRepository(t *testing.T) {
	ctx, st := suite.New(t)

	testGameRepository(t, ctx, NewGameRepository(st.Storage))
}
