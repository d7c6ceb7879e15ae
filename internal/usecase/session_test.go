package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions() *SessionManager {
	return NewSessionManager(discardLogger(), func() *GameManager {
		return newTestManager(humanFirst, nil, nil)
	}, time.Hour)
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		sessions := newTestSessions()

		id, created := sessions.Create()

		require.NotEmpty(t, id)
		game, err := sessions.Get(id)
		require.NoError(t, err)
		assert.Same(t, created, game)
		assert.Equal(t, entity.PhaseNotStarted, game.CurrentState().Phase)
	})

	t.Run("Unknown session", func(t *testing.T) {
		sessions := newTestSessions()

		_, err := sessions.Get("missing")
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)

		err = sessions.Delete("missing")
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		sessions := newTestSessions()
		id, _ := sessions.Create()

		require.NoError(t, sessions.Delete(id))

		_, err := sessions.Get(id)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		assert.Zero(t, sessions.Len())
	})

	t.Run("Delete abandons a game in progress", func(t *testing.T) {
		// Given: a session mid-game
		sink := &recordingSink{}
		sessions := NewSessionManager(discardLogger(), func() *GameManager {
			return newTestManager(humanFirst, sink, nil)
		}, time.Hour)
		id, game := sessions.Create()
		require.NoError(t, game.Start(ctx))
		require.NoError(t, game.SubmitMove(0))

		// When: it is deleted
		require.NoError(t, sessions.Delete(id))

		// Then: the sink hears the game was dropped
		assert.Equal(t, []entity.EventKind{entity.EventStart, entity.EventMove, entity.EventAbandon}, sink.kinds())
	})

	t.Run("Idle sessions expire on create", func(t *testing.T) {
		// Given: one session left mid-game and one kept in use
		sink := &recordingSink{}
		sessions := NewSessionManager(discardLogger(), func() *GameManager {
			return newTestManager(humanFirst, sink, nil)
		}, time.Minute)
		clock := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		sessions.now = func() time.Time { return clock }

		idle, idleGame := sessions.Create()
		require.NoError(t, idleGame.Start(ctx))
		require.NoError(t, idleGame.SubmitMove(0))
		active, _ := sessions.Create()

		// When: only the active one is touched before the next create
		clock = clock.Add(50 * time.Second)
		_, err := sessions.Get(active)
		require.NoError(t, err)

		clock = clock.Add(50 * time.Second)
		sessions.Create()

		// Then: the idle session is gone and its game abandoned
		_, err = sessions.Get(idle)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
		_, err = sessions.Get(active)
		require.NoError(t, err)
		assert.Equal(t, 2, sessions.Len())
		assert.Contains(t, sink.kinds(), entity.EventAbandon)
		assert.Equal(t, entity.PhaseNotStarted, idleGame.CurrentState().Phase)
	})

	t.Run("Sessions are independent", func(t *testing.T) {
		// Given: two sessions
		sessions := newTestSessions()
		_, first := sessions.Create()
		_, second := sessions.Create()

		// When: only the first one is played
		require.NoError(t, first.Start(ctx))
		require.NoError(t, first.SubmitMove(0))

		// Then: the second one is untouched
		assert.Len(t, first.CurrentState().Moves, 1)
		assert.Equal(t, entity.PhaseNotStarted, second.CurrentState().Phase)
		assert.Empty(t, second.CurrentState().Moves)
	})

	t.Run("Concurrent create", func(t *testing.T) {
		sessions := newTestSessions()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				id, _ := sessions.Create()
				_, err := sessions.Get(id)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, sessions.Len())
	})
}
