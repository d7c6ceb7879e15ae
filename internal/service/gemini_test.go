package service

import (
	"context"
	"os"
	"testing"

	"github.com/rocketscienceinc/tictactoe-solo/internal/config"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBoard(t *testing.T) {
	board := entity.Snapshot{x, e, e, e, o, e, e, e, x}

	expected := "X | 1 | 2\n" +
		"---------\n" +
		"3 | O | 5\n" +
		"---------\n" +
		"6 | 7 | X\n"

	assert.Equal(t, expected, FormatBoard(board))
}

func TestParseCell(t *testing.T) {
	t.Run("Bare number", func(t *testing.T) {
		cell, err := ParseCell("4")
		require.NoError(t, err)
		assert.Equal(t, 4, cell)
	})

	t.Run("Number inside a sentence", func(t *testing.T) {
		cell, err := ParseCell("I choose 7 because it blocks.")
		require.NoError(t, err)
		assert.Equal(t, 7, cell)
	})

	t.Run("No number", func(t *testing.T) {
		_, err := ParseCell("the center")
		assert.ErrorIs(t, err, ErrNoCellInResponse)
	})
}

func TestNewGeminiClient_NotConfigured(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), config.Gemini{})

	assert.ErrorIs(t, err, ErrGeminiNotConfigured)
}

func TestGeminiClient_SuggestMove(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := NewGeminiClient(ctx, config.Gemini{APIKey: apiKey})
	require.NoError(t, err)

	board := entity.Snapshot{x, x, e, o, e, e, e, e, e}

	cell, err := client.SuggestMove(ctx, board, o, x)
	require.NoError(t, err)

	t.Logf("Gemini suggested cell %d", cell)
}
