package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quitflow/internal/common/database"
	"quitflow/internal/common/logger"
)

// Postgres stores documents in a single table keyed by path. The body column
// is json (not jsonb) so the stored text, including object key order, is
// exactly what was written; rule order in the questionnaire config depends on
// that.
type Postgres struct {
	db  *sql.DB
	log logger.Logger
	now func() time.Time
}

func NewPostgres(client *database.PostgresClient, log logger.Logger) *Postgres {
	return &Postgres{
		db:  client.DB,
		log: log.WithFields(map[string]interface{}{"component": "docstore"}),
		now: time.Now,
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    path       TEXT PRIMARY KEY,
    data       JSON NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the documents table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("docstore: ensure schema: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", path, err)
	}
	return json.RawMessage(body), nil
}

func (s *Postgres) Set(ctx context.Context, path string, data interface{}, merge bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.applyWrite(ctx, tx, Write{Path: path, Data: data, Merge: merge})
	})
}

func (s *Postgres) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return fmt.Errorf("docstore: delete %s: %w", path, err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	// Direct children only, no grandchildren.
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, data FROM documents WHERE path LIKE $1 AND path NOT LIKE $2`,
		prefix+"/%", prefix+"/%/%",
	)
	if err != nil {
		return nil, fmt.Errorf("docstore: list %s: %w", prefix, err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var path string
		var body []byte
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("docstore: list %s: %w", prefix, err)
		}
		docs[DocID(path)] = json.RawMessage(body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list %s: %w", prefix, err)
	}
	return docs, nil
}

func (s *Postgres) Batch(ctx context.Context, writes []Write) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, w := range writes {
			if err := s.applyWrite(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Postgres) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warn("rollback failed", map[string]interface{}{"error": rbErr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}
	return nil
}

func (s *Postgres) applyWrite(ctx context.Context, tx *sql.Tx, w Write) error {
	if w.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, w.Path); err != nil {
			return fmt.Errorf("docstore: delete %s: %w", w.Path, err)
		}
		return nil
	}

	body, err := encodeBody(w.Data, s.now())
	if err != nil {
		return err
	}

	if w.Merge {
		var existing []byte
		err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = $1 FOR UPDATE`, w.Path).Scan(&existing)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("docstore: merge read %s: %w", w.Path, err)
		}
		if len(existing) > 0 {
			body, err = mergeBodies(existing, body)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (path, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		w.Path, []byte(body),
	)
	if err != nil {
		return fmt.Errorf("docstore: write %s: %w", w.Path, err)
	}
	return nil
}
