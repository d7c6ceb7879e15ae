package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
)

// timeLayout is fixed width so that ORDER BY on the text column is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type sqliteGame struct {
	conn *sql.DB
}

// NewSQLiteGameRepository expects the games table created by storage.Init.
func NewSQLiteGameRepository(conn *sql.DB) GameRepository {
	return &sqliteGame{
		conn: conn,
	}
}

func (that *sqliteGame) Save(ctx context.Context, record *entity.GameRecord) error {
	query := `INSERT OR REPLACE INTO games
		(id, start_time, end_time, first_player, human_mark, cpu_mark, moves, winner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	moves, err := json.Marshal(record.Moves)
	if err != nil {
		return fmt.Errorf("can't marshal moves: %w", err)
	}

	_, err = that.conn.ExecContext(ctx, query,
		record.ID,
		record.StartTime.UTC().Format(timeLayout),
		record.EndTime.UTC().Format(timeLayout),
		string(record.FirstPlayer),
		string(record.HumanMark),
		string(record.CPUMark),
		string(moves),
		string(record.Winner),
	)
	if err != nil {
		return fmt.Errorf("can't save game: %w", err)
	}

	return nil
}

func (that *sqliteGame) GetByID(ctx context.Context, id string) (*entity.GameRecord, error) {
	query := `SELECT id, start_time, end_time, first_player, human_mark, cpu_mark, moves, winner
		FROM games WHERE id = ?`

	record, err := scanGame(that.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find game: %w", err)
	}

	return record, nil
}

func (that *sqliteGame) List(ctx context.Context, limit int) ([]*entity.GameRecord, error) {
	if limit <= 0 {
		return []*entity.GameRecord{}, nil
	}

	query := `SELECT id, start_time, end_time, first_player, human_mark, cpu_mark, moves, winner
		FROM games ORDER BY end_time DESC LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list games: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.GameRecord, 0, limit)
	for rows.Next() {
		record, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("can't scan game: %w", err)
		}

		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate games: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*entity.GameRecord, error) {
	var (
		record                    entity.GameRecord
		startTime, endTime, moves string
		firstPlayer, winner       string
		humanMark, cpuMark        string
	)

	err := row.Scan(&record.ID, &startTime, &endTime, &firstPlayer, &humanMark, &cpuMark, &moves, &winner)
	if err != nil {
		return nil, err
	}

	if record.StartTime, err = time.Parse(timeLayout, startTime); err != nil {
		return nil, fmt.Errorf("bad start time: %w", err)
	}

	if record.EndTime, err = time.Parse(timeLayout, endTime); err != nil {
		return nil, fmt.Errorf("bad end time: %w", err)
	}

	if err = json.Unmarshal([]byte(moves), &record.Moves); err != nil {
		return nil, fmt.Errorf("bad moves: %w", err)
	}

	record.FirstPlayer = entity.Player(firstPlayer)
	record.Winner = entity.Player(winner)
	record.HumanMark = entity.Mark(humanMark)
	record.CPUMark = entity.Mark(cpuMark)

	return &record, nil
}
