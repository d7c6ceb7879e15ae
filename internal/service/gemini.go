package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-solo/internal/config"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"google.golang.org/genai"
)

const (
	defaultRegion = "europe-west1"
	defaultModel  = "gemini-2.5-flash"

	suggestMaxTokens = 10
	reflectMaxTokens = 100
)

var (
	ErrGeminiNotConfigured = errors.New("gemini credentials are not configured")
	ErrEmptyResponse       = errors.New("empty gemini response")
	ErrNoCellInResponse    = errors.New("no cell index in gemini response")

	cellPattern = regexp.MustCompile(`\d+`)
)

const suggestPrompt = `You are playing Tic-Tac-Toe as '%s' against '%s'.
Current board (numbers show empty cell indices):
%s
Available moves: %v
Reply with ONLY a single number (the cell index) for your best move.`

const reflectPrompt = `A Tic-Tac-Toe game between a human and a CPU just ended.
Moves:
%s
Result: %s
Give a brief, fun reflection on this game in 1-2 sentences.`

// GeminiClient asks Gemini for moves and post-game comments.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient uses the Gemini API when an API key is set, Vertex AI with
// Application Default Credentials when only a project is set.
func NewGeminiClient(ctx context.Context, conf config.Gemini) (*GeminiClient, error) {
	clientConfig := &genai.ClientConfig{}

	switch {
	case conf.APIKey != "":
		clientConfig.APIKey = conf.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	case conf.Project != "":
		region := conf.Region
		if region == "" {
			region = defaultRegion
		}
		clientConfig.Project = conf.Project
		clientConfig.Location = region
		clientConfig.Backend = genai.BackendVertexAI
	default:
		return nil, ErrGeminiNotConfigured
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	modelName := conf.Model
	if modelName == "" {
		modelName = defaultModel
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// SuggestMove returns the cell Gemini picks. The bot validates it.
func (that *GeminiClient) SuggestMove(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error) {
	prompt := fmt.Sprintf(suggestPrompt, cpu, opponent, FormatBoard(board), board.EmptyIndices())

	text, err := that.generate(ctx, prompt, 0.3, suggestMaxTokens)
	if err != nil {
		return 0, err
	}

	return ParseCell(text)
}

// Reflect returns a short comment about a finished game.
func (that *GeminiClient) Reflect(ctx context.Context, moves []entity.Move, winner entity.Player) (string, error) {
	lines := make([]string, 0, len(moves))
	for _, move := range moves {
		lines = append(lines, fmt.Sprintf("%s (%s): position %d", move.Player, move.Mark, move.Position))
	}

	prompt := fmt.Sprintf(reflectPrompt, strings.Join(lines, "\n"), winner)

	return that.generate(ctx, prompt, 0.7, reflectMaxTokens)
}

func (that *GeminiClient) generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	resp, err := that.client.Models.GenerateContent(ctx, that.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(temperature),
			MaxOutputTokens: maxTokens,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// FormatBoard renders the board with empty cells shown as their index.
func FormatBoard(board entity.Snapshot) string {
	var sb strings.Builder

	for row := 0; row < entity.BoardSide; row++ {
		cells := make([]string, 0, entity.BoardSide)
		for col := 0; col < entity.BoardSide; col++ {
			index := row*entity.BoardSide + col
			if mark := board.Get(index); mark != entity.EmptyCell {
				cells = append(cells, string(mark))
			} else {
				cells = append(cells, strconv.Itoa(index))
			}
		}

		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
		if row < entity.BoardSide-1 {
			sb.WriteString("---------\n")
		}
	}

	return sb.String()
}

// ParseCell extracts the first number from a reply such as "I choose 4".
func ParseCell(text string) (int, error) {
	match := cellPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoCellInResponse, text)
	}

	cell, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("parse cell %q: %w", match, err)
	}

	return cell, nil
}
