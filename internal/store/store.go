// Package store persists the sound library catalog and its embeddings in
// SQLite. It is the durable source of truth; the lexical and semantic
// indexes are rebuilt from it.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sferrors "github.com/sfxvault/sfxvault/internal/errors"
)

// Sound is a catalog record for one sound effect file.
type Sound struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Path         string   `json:"path"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	DurationSecs float64  `json:"duration_secs"`
	SampleRate   int      `json:"sample_rate,omitempty"`
	Channels     int      `json:"channels,omitempty"`
	SizeBytes    int64    `json:"size_bytes,omitempty"`
	AddedAt      int64    `json:"added_at"`
}

// Store wraps the SQLite database holding sounds, embeddings, and
// application state.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sounds (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	path          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	tags          TEXT NOT NULL DEFAULT '[]',
	duration_secs REAL NOT NULL DEFAULT 0,
	sample_rate   INTEGER NOT NULL DEFAULT 0,
	channels      INTEGER NOT NULL DEFAULT 0,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	added_at      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sounds_category ON sounds(category);
CREATE INDEX IF NOT EXISTS idx_sounds_duration ON sounds(duration_secs);

CREATE TABLE IF NOT EXISTS sound_embeddings (
	sound_id TEXT PRIMARY KEY REFERENCES sounds(id) ON DELETE CASCADE,
	model    TEXT NOT NULL,
	dims     INTEGER NOT NULL,
	vector   BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS app_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		// WAL keeps readers unblocked during index rebuilds.
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, sferrors.DatabaseError(fmt.Sprintf("open database %s", path), err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, sferrors.DatabaseError(fmt.Sprintf("apply schema to %s", path), err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSounds upserts sounds in a single transaction.
func (s *Store) SaveSounds(ctx context.Context, sounds []*Sound) error {
	if len(sounds) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sounds (id, name, path, category, tags, duration_secs, sample_rate, channels, size_bytes, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			category = excluded.category,
			tags = excluded.tags,
			duration_secs = excluded.duration_secs,
			sample_rate = excluded.sample_rate,
			channels = excluded.channels,
			size_bytes = excluded.size_bytes`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, snd := range sounds {
		tags, err := json.Marshal(snd.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", snd.ID, err)
		}
		addedAt := snd.AddedAt
		if addedAt == 0 {
			addedAt = time.Now().Unix()
		}
		if _, err := stmt.ExecContext(ctx, snd.ID, snd.Name, snd.Path, snd.Category,
			string(tags), snd.DurationSecs, snd.SampleRate, snd.Channels, snd.SizeBytes, addedAt); err != nil {
			return fmt.Errorf("upsert sound %s: %w", snd.ID, err)
		}
	}

	return tx.Commit()
}

// GetSounds loads sounds by ID, preserving the requested order. Missing
// IDs are skipped.
func (s *Store) GetSounds(ctx context.Context, ids []string) ([]*Sound, error) {
	if len(ids) == 0 {
		return []*Sound{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, category, tags, duration_secs, sample_rate, channels, size_bytes, added_at
		 FROM sounds WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sounds: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Sound, len(ids))
	for rows.Next() {
		snd, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		byID[snd.ID] = snd
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan sounds: %w", err)
	}

	out := make([]*Sound, 0, len(ids))
	for _, id := range ids {
		if snd, ok := byID[id]; ok {
			out = append(out, snd)
		}
	}
	return out, nil
}

// AllSounds streams every sound ordered by ID.
func (s *Store) AllSounds(ctx context.Context) ([]*Sound, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, category, tags, duration_secs, sample_rate, channels, size_bytes, added_at
		 FROM sounds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sounds: %w", err)
	}
	defer rows.Close()

	var out []*Sound
	for rows.Next() {
		snd, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan sounds: %w", err)
	}
	return out, nil
}

// Count returns the number of cataloged sounds.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sounds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sounds: %w", err)
	}
	return n, nil
}

// DeleteSounds removes sounds and their embeddings.
func (s *Store) DeleteSounds(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sound_embeddings WHERE sound_id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sounds WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete sounds: %w", err)
	}
	return tx.Commit()
}

// MatchingIDs evaluates a compiled filter against the catalog and returns
// matching sound IDs ordered by ID.
func (s *Store) MatchingIDs(ctx context.Context, where string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sounds WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query filter: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan filter ids: %w", err)
	}
	return ids, nil
}

// SaveEmbeddings stores vectors as little-endian float32 blobs keyed by
// sound ID.
func (s *Store) SaveEmbeddings(ctx context.Context, model string, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sound_embeddings (sound_id, model, dims, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sound_id) DO UPDATE SET
			model = excluded.model,
			dims = excluded.dims,
			vector = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, id, model, len(vectors[i]), encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("upsert embedding %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// LoadEmbeddings returns all stored vectors for the given model.
func (s *Store) LoadEmbeddings(ctx context.Context, model string) (ids []string, vectors [][]float32, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sound_id, vector FROM sound_embeddings WHERE model = ? ORDER BY sound_id`, model)
	if err != nil {
		return nil, nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, fmt.Errorf("scan embedding: %w", err)
		}
		ids = append(ids, id)
		vectors = append(vectors, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan embeddings: %w", err)
	}
	return ids, vectors, nil
}

// SetState writes an application state key.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// GetState reads an application state key. Missing keys return "".
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

func scanSound(rows *sql.Rows) (*Sound, error) {
	var snd Sound
	var tags string
	if err := rows.Scan(&snd.ID, &snd.Name, &snd.Path, &snd.Category, &tags,
		&snd.DurationSecs, &snd.SampleRate, &snd.Channels, &snd.SizeBytes, &snd.AddedAt); err != nil {
		return nil, fmt.Errorf("scan sound: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &snd.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for %s: %w", snd.ID, err)
	}
	return &snd, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
