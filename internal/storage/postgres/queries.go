package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcoot/fourinarow/internal/model"
)

// gameColumns is the column list used for SELECT statements on the games table.
const gameColumns = `id, player_a, player_a_automated, player_b, player_b_automated,
	winner, end_reason, board, moves, started_at, ended_at, duration_ms`

// statsColumns is the column list used for SELECT statements on the player_stats table.
const statsColumns = `player, games_played, games_won, games_lost, games_drawn,
	total_moves, total_duration_ms, last_played_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func querySaveGameRecord(ctx context.Context, db executor, r *model.GameRecord) error {
	board, err := json.Marshal(r.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	moves, err := json.Marshal(r.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO games (
			id, player_a, player_a_automated, player_b, player_b_automated,
			winner, end_reason, board, moves, started_at, ended_at, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (id) DO NOTHING`,
		string(r.ID),
		string(r.PlayerA.ID),
		r.PlayerA.IsAutomated,
		string(r.PlayerB.ID),
		r.PlayerB.IsAutomated,
		nullString(string(r.Winner)),
		string(r.EndReason),
		board,
		moves,
		r.StartedAt,
		r.EndedAt,
		r.Duration.Milliseconds(),
	)
	return err
}

func queryGetGameRecord(ctx context.Context, db executor, id model.SessionID) (*model.GameRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, string(id))
	r, err := scanGameRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrGameRecordNotFound
	}
	return r, err
}

func queryListGameRecordsByPlayer(ctx context.Context, db executor, player model.PlayerID, limit int) ([]*model.GameRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games
		WHERE (player_a = $1 AND NOT player_a_automated)
			OR (player_b = $1 AND NOT player_b_automated)
		ORDER BY ended_at DESC
		LIMIT $2`, string(player), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*model.GameRecord{}
	for rows.Next() {
		r, err := scanGameRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func querySavePlayerStats(ctx context.Context, db executor, st *model.PlayerStats) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO player_stats (`+statsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (player) DO UPDATE SET
			games_played = EXCLUDED.games_played,
			games_won = EXCLUDED.games_won,
			games_lost = EXCLUDED.games_lost,
			games_drawn = EXCLUDED.games_drawn,
			total_moves = EXCLUDED.total_moves,
			total_duration_ms = EXCLUDED.total_duration_ms,
			last_played_at = EXCLUDED.last_played_at`,
		string(st.Player),
		st.GamesPlayed,
		st.GamesWon,
		st.GamesLost,
		st.GamesDrawn,
		st.TotalMoves,
		st.TotalDuration.Milliseconds(),
		st.LastPlayedAt,
	)
	return err
}

func queryGetPlayerStats(ctx context.Context, db executor, player model.PlayerID) (*model.PlayerStats, error) {
	row := db.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM player_stats WHERE player = $1`, string(player))

	var st model.PlayerStats
	var (
		name       string
		durationMS int64
	)
	err := row.Scan(&name, &st.GamesPlayed, &st.GamesWon, &st.GamesLost, &st.GamesDrawn, &st.TotalMoves, &durationMS, &st.LastPlayedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	st.Player = model.PlayerID(name)
	st.TotalDuration = time.Duration(durationMS) * time.Millisecond
	return &st, nil
}

func scanGameRecord(s scanner) (*model.GameRecord, error) {
	var (
		r                               model.GameRecord
		id, playerA, playerB, endReason string
		winner                          sql.NullString
		board, moves                    []byte
		durationMS                      int64
	)
	if err := s.Scan(
		&id, &playerA, &r.PlayerA.IsAutomated, &playerB, &r.PlayerB.IsAutomated,
		&winner, &endReason, &board, &moves, &r.StartedAt, &r.EndedAt, &durationMS,
	); err != nil {
		return nil, err
	}

	r.ID = model.SessionID(id)
	r.PlayerA.ID = model.PlayerID(playerA)
	r.PlayerB.ID = model.PlayerID(playerB)
	r.Winner = model.PlayerID(winner.String)
	r.EndReason = model.EndReason(endReason)
	r.Duration = time.Duration(durationMS) * time.Millisecond

	r.Board = model.NewBoard()
	if err := json.Unmarshal(board, r.Board); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	if err := json.Unmarshal(moves, &r.Moves); err != nil {
		return nil, fmt.Errorf("unmarshal moves: %w", err)
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
