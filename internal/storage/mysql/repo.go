package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"market_intel/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

func valInt(i int) any {
	if i == 0 {
		return nil
	}
	return i
}

func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Repo is the MySQL-backed provider failure log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects with the given DSN and verifies the connection.
// The DSN needs parseTime=true for seen_at to scan into time.Time.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// Migrate creates the tables the repo needs. It is idempotent.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *Repo) LogFailure(ctx context.Context, f domain.ProviderFailure) error {
	_, err := r.db.ExecContext(ctx, insertFailureSQL,
		string(f.Provider),
		f.Kind,
		valInt(f.Status),
		f.Reason,
		valTime(f.SeenAt),
	)
	return err
}

func (r *Repo) ListFailures(ctx context.Context, q domain.FailuresQuery) ([]domain.ProviderFailure, error) {
	var provider any
	if q.Provider != nil {
		provider = string(*q.Provider)
	}
	rows, err := r.db.QueryContext(ctx, listFailuresSQL, provider, provider, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ProviderFailure{}
	for rows.Next() {
		var (
			f      domain.ProviderFailure
			src    string
			status sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &src, &f.Kind, &status, &f.Reason, &f.SeenAt); err != nil {
			return nil, err
		}
		f.Provider = domain.Source(src)
		if status.Valid {
			f.Status = int(status.Int64)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
