package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/rfontaine/lycaon/internal/codec"
	"github.com/rfontaine/lycaon/internal/game"
)

// ErrGameNotFound is returned by LoadGame for an unknown game ID.
var ErrGameNotFound = errors.New("store: game not found")

// Shared zstd coders. Both are safe for concurrent use via EncodeAll and
// DecodeAll, which never touch streaming state.
var (
	zstdEnc, _ = zstd.NewWriter(nil)
	zstdDec, _ = zstd.NewReader(nil)
)

// GameSummary is the listing row for one stored game.
type GameSummary struct {
	ID        string
	Phase     string
	SubPhase  string
	Day       int
	Alive     int
	Total     int
	UpdatedAt string
}

// SaveGame upserts the full snapshot of a game plus the queryable
// projection of its ability usage counters, in one database transaction.
// It satisfies the transaction runner's persister interface.
//
// The snapshot is JSON (encoding/json sorts map keys, so equal states
// serialize identically), hashed with domain separation before compression
// so the hash is comparable across compression level changes.
func (s *Store) SaveGame(ctx context.Context, state *game.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("save game: marshal snapshot: %w", err)
	}
	hash := codec.HashWithDomain(codec.DomainSnapshot, raw)
	blob := zstdEnc.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save game: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, phase, sub_phase, day, snapshot, snapshot_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			sub_phase = excluded.sub_phase,
			day = excluded.day,
			snapshot = excluded.snapshot,
			snapshot_hash = excluded.snapshot_hash,
			updated_at = excluded.updated_at
	`, state.ID, string(state.Phase), string(state.SubPhase), state.Day, blob, hash)
	if err != nil {
		return fmt.Errorf("save game: upsert: %w", err)
	}

	// Rewrite the projection wholesale. The row count is small (players x
	// abilities) and a delete+insert is simpler than diffing counters.
	if _, err := tx.ExecContext(ctx, `DELETE FROM ability_usage WHERE game_id = ?`, state.ID); err != nil {
		return fmt.Errorf("save game: clear usage rows: %w", err)
	}
	usages := state.Runtime.Usages()
	keys := make([]string, 0, len(usages))
	for k := range usages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		u := usages[key]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ability_usage (game_id, usage_key, charges_used, last_used_day)
			VALUES (?, ?, ?, ?)
		`, state.ID, key, u.ChargesUsed, u.LastUsedDay)
		if err != nil {
			return fmt.Errorf("save game: usage row %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save game: commit: %w", err)
	}
	return nil
}

// LoadGame reads a game back from its snapshot blob. The snapshot is
// authoritative; the usage projection is not consulted. The restored
// runtime state starts with an empty executed-this-cycle marker.
func (s *Store) LoadGame(ctx context.Context, id string) (*game.State, error) {
	var blob []byte
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot, snapshot_hash FROM games WHERE id = ?
	`, id).Scan(&blob, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load game %s: %w", id, ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}

	raw, err := zstdDec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("load game %s: decompress: %w", id, err)
	}
	if got := codec.HashWithDomain(codec.DomainSnapshot, raw); got != hash {
		return nil, fmt.Errorf("load game %s: snapshot hash mismatch (stored %s, computed %s)", id, hash, got)
	}

	var state game.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("load game %s: unmarshal: %w", id, err)
	}
	state.Normalize()
	return &state, nil
}

// ListGames returns a summary row per stored game, newest first.
func (s *Store) ListGames(ctx context.Context) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, phase, sub_phase, day, snapshot, updated_at
		FROM games ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var gs GameSummary
		var blob []byte
		if err := rows.Scan(&gs.ID, &gs.Phase, &gs.SubPhase, &gs.Day, &blob, &gs.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list games: scan: %w", err)
		}
		raw, err := zstdDec.DecodeAll(blob, nil)
		if err != nil {
			return nil, fmt.Errorf("list games: decompress %s: %w", gs.ID, err)
		}
		var state game.State
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("list games: unmarshal %s: %w", gs.ID, err)
		}
		gs.Total = len(state.Players)
		for _, p := range state.Players {
			if p.Alive {
				gs.Alive++
			}
		}
		out = append(out, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return out, nil
}

// UsageRows returns the stored ability usage projection for one game,
// ordered by key. Debugging and listing hook; the snapshot stays
// authoritative.
func (s *Store) UsageRows(ctx context.Context, gameID string) (map[string][2]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT usage_key, charges_used, last_used_day
		FROM ability_usage WHERE game_id = ? ORDER BY usage_key
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("usage rows: %w", err)
	}
	defer rows.Close()

	out := make(map[string][2]int)
	for rows.Next() {
		var key string
		var charges, last int
		if err := rows.Scan(&key, &charges, &last); err != nil {
			return nil, fmt.Errorf("usage rows: scan: %w", err)
		}
		out[key] = [2]int{charges, last}
	}
	return out, rows.Err()
}
