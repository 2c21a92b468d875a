package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskbot/model"
)

// PostgresStore persists records in a single tasks table. Mutate runs under
// SELECT ... FOR UPDATE so the read-modify-write is serialized by the row
// lock.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tasks (
	channel_id     TEXT PRIMARY KEY,
	task_name      TEXT NOT NULL,
	user_limit     INTEGER NOT NULL,
	amount         TEXT NOT NULL,
	description    TEXT NOT NULL,
	link           TEXT NOT NULL,
	role_id        TEXT NOT NULL,
	approved_count INTEGER NOT NULL DEFAULT 0,
	state          TEXT NOT NULL,
	approved       JSONB NOT NULL DEFAULT '{}'::jsonb
)`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, rec *model.TaskRecord) error {
	if rec.UserLimit <= 0 {
		return model.ErrInvalidUserLimit
	}
	approved, err := json.Marshal(rec.ApprovedParticipants)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO tasks (channel_id, task_name, user_limit, amount, description, link, role_id, approved_count, state, approved)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (channel_id) DO NOTHING`,
		rec.ChannelID, rec.TaskName, rec.UserLimit, rec.Amount, rec.Description,
		rec.Link, rec.RoleID, rec.ApprovedCount, string(rec.State), approved,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDuplicateChannel
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, channelID string) (*model.TaskRecord, error) {
	row := s.pool.QueryRow(ctx, `
SELECT channel_id, task_name, user_limit, amount, description, link, role_id, approved_count, state, approved
FROM tasks WHERE channel_id = $1`, channelID)
	return scanTask(row)
}

func (s *PostgresStore) Remove(ctx context.Context, channelID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE channel_id = $1`, channelID)
	return err
}

func (s *PostgresStore) Mutate(ctx context.Context, channelID string, fn func(*model.TaskRecord) error) (*model.TaskRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
SELECT channel_id, task_name, user_limit, amount, description, link, role_id, approved_count, state, approved
FROM tasks WHERE channel_id = $1 FOR UPDATE`, channelID)
	rec, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	approved, err := json.Marshal(rec.ApprovedParticipants)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
UPDATE tasks SET approved_count = $2, state = $3, approved = $4 WHERE channel_id = $1`,
		channelID, rec.ApprovedCount, string(rec.State), approved,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func scanTask(row pgx.Row) (*model.TaskRecord, error) {
	var rec model.TaskRecord
	var state string
	var approved []byte
	err := row.Scan(&rec.ChannelID, &rec.TaskName, &rec.UserLimit, &rec.Amount,
		&rec.Description, &rec.Link, &rec.RoleID, &rec.ApprovedCount, &state, &approved)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.State = model.TaskState(state)
	rec.ApprovedParticipants = make(map[string]bool)
	if len(approved) > 0 {
		if err := json.Unmarshal(approved, &rec.ApprovedParticipants); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
