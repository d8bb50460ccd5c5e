// Package sqlstore is a SQLite-backed store.Store. All collections share one
// `documents` table keyed (collection, id) with the document body as JSON.
// Unlike the other bundled stores, Query compiles filters, orders and the
// limit into SQL over json_extract, so it runs server-side.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/doccache/internal/match"
	"github.com/unkn0wn-root/doccache/store"
)

type Store[V any] struct {
	db      *sql.DB
	closeDB bool
}

var _ store.Store[struct{}] = (*Store[struct{}])(nil)

// Open opens (or creates) the database at dbPath and bootstraps the schema.
// If dbPath is empty or ":memory:", an in-memory database is used.
func Open[V any](dbPath string) (*Store[V], error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrent performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &Store[V]{db: db, closeDB: true}, nil
}

func (s *Store[V]) Get(ctx context.Context, collection, id string) (V, bool, error) {
	var zero V
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var doc V
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return zero, false, fmt.Errorf("sqlstore: decode %q/%q: %w", collection, id, err)
	}
	return doc, true, nil
}

func (s *Store[V]) Set(ctx context.Context, collection, id string, doc V) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlstore: encode %q/%q: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body`,
		collection, id, string(body),
	)
	return err
}

func (s *Store[V]) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return fmt.Errorf("sqlstore: update %q/%q: %w", collection, id, store.ErrNoDocument)
	}
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("sqlstore: decode %q/%q: %w", collection, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlstore: encode %q/%q: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(merged), collection, id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store[V]) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

func (s *Store[V]) Query(ctx context.Context, collection string, filters []store.Filter, orders []store.Order, limit int) ([]V, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT body FROM documents WHERE collection = ?`)
	args := []any{collection}

	for _, f := range filters {
		frag, fargs, err := filterSQL(f)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: query %q: %w", collection, err)
		}
		sb.WriteString(" AND ")
		sb.WriteString(frag)
		args = append(args, fargs...)
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range orders {
		sb.WriteString("json_extract(body, ?) ")
		if o.Desc {
			sb.WriteString("DESC")
		} else {
			sb.WriteString("ASC")
		}
		sb.WriteString(", ")
		args = append(args, path(o.Field))
	}
	sb.WriteString("id ASC") // deterministic base order

	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []V
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var doc V
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("sqlstore: decode %q: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store[V]) Close(context.Context) error {
	if s.closeDB {
		return s.db.Close()
	}
	return nil
}

func path(field string) string { return "$." + field }

func filterSQL(f store.Filter) (string, []any, error) {
	switch f.Op {
	case store.OpEq:
		return "json_extract(body, ?) = ?", []any{path(f.Field), bind(f.Value)}, nil
	case store.OpNotEq:
		return "json_extract(body, ?) <> ?", []any{path(f.Field), bind(f.Value)}, nil
	case store.OpLt, store.OpLtEq, store.OpGt, store.OpGtEq:
		return "json_extract(body, ?) " + f.Op + " ?", []any{path(f.Field), bind(f.Value)}, nil
	case store.OpIn, store.OpNotIn:
		members, err := match.Elements(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("operator %q: %w", f.Op, err)
		}
		if len(members) == 0 {
			// empty membership: "in" matches nothing, "not-in" everything
			if f.Op == store.OpIn {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		args := []any{path(f.Field)}
		ph := make([]string, len(members))
		for i, m := range members {
			ph[i] = "?"
			args = append(args, bind(m))
		}
		kw := "IN"
		if f.Op == store.OpNotIn {
			kw = "NOT IN"
		}
		return "json_extract(body, ?) " + kw + " (" + strings.Join(ph, ", ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unknown operator %q", f.Op)
	}
}

// bind maps filter values to how they appear inside JSON bodies:
// json_extract yields 0/1 for booleans and NULL for json null.
func bind(v any) any {
	switch b := v.(type) {
	case bool:
		if b {
			return 1
		}
		return 0
	case nil:
		return nil
	}
	return v
}
