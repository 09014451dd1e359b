package store

import (
	"context"
	"fmt"

	"github.com/rfontaine/lycaon/internal/codec"
)

// TraceRecord is one committed dispatch batch, serialized canonically and
// content-addressed. Replaying a commit inserts the same ID and is
// silently ignored.
type TraceRecord struct {
	ID      string
	GameID  string
	Day     int
	Trigger string
	Seq     int
	Payload []byte // canonical JSON
}

// AppendTrace writes one dispatch trace, assigning the next per-game
// sequence number. Uses ON CONFLICT(id) DO NOTHING for idempotency:
// content-addressed IDs make duplicate appends no-ops.
func (s *Store) AppendTrace(ctx context.Context, gameID string, day int, trigger string, payload map[string]any) (string, error) {
	id, err := codec.TraceID(gameID, day, trigger, payload)
	if err != nil {
		return "", fmt.Errorf("append trace: %w", err)
	}
	canonical, err := codec.MarshalCanonical(map[string]any{
		"game_id": gameID,
		"day":     day,
		"trigger": trigger,
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("append trace: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("append trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM dispatch_traces WHERE game_id = ?
	`, gameID).Scan(&seq); err != nil {
		return "", fmt.Errorf("append trace: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO dispatch_traces (id, game_id, day, trigger, seq, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, gameID, day, trigger, seq, string(canonical))
	if err != nil {
		return "", fmt.Errorf("append trace: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("append trace: commit: %w", err)
	}
	return id, nil
}

// TracesForGame returns a game's dispatch traces in append order.
func (s *Store) TracesForGame(ctx context.Context, gameID string) ([]TraceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, day, trigger, seq, payload
		FROM dispatch_traces WHERE game_id = ? ORDER BY seq
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("traces for game: %w", err)
	}
	defer rows.Close()

	var out []TraceRecord
	for rows.Next() {
		var tr TraceRecord
		var payload string
		if err := rows.Scan(&tr.ID, &tr.GameID, &tr.Day, &tr.Trigger, &tr.Seq, &payload); err != nil {
			return nil, fmt.Errorf("traces for game: scan: %w", err)
		}
		tr.Payload = []byte(payload)
		out = append(out, tr)
	}
	return out, rows.Err()
}
