// Package storage persists published curves in PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/meenmo/ycurve/curve"
)

// ErrNotFound is returned when no build exists for a curve name.
var ErrNotFound = errors.New("curve build not found")

// Schema creates the tables the repository writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS curve_builds (
	id             UUID PRIMARY KEY,
	curve_name     TEXT NOT NULL,
	reference_date DATE NOT NULL,
	trait          TEXT NOT NULL,
	interpolation  TEXT NOT NULL,
	day_count      TEXT NOT NULL,
	passes         INTEGER NOT NULL,
	built_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS curve_builds_name_built_at ON curve_builds (curve_name, built_at DESC);
CREATE TABLE IF NOT EXISTS curve_nodes (
	build_id   UUID NOT NULL REFERENCES curve_builds (id) ON DELETE CASCADE,
	node_date  DATE NOT NULL,
	node_time  DOUBLE PRECISION NOT NULL,
	node_value DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (build_id, node_date)
);`

// CurveBuild is one persisted curve with its solved nodes.
type CurveBuild struct {
	ID            uuid.UUID
	Name          string
	ReferenceDate time.Time
	Trait         string
	Interpolation string
	DayCount      string
	Passes        int
	BuiltAt       time.Time
	Nodes         []curve.Node
}

// CurveRepository defines contract for DB operations.
type CurveRepository interface {
	SaveCurve(ctx context.Context, b CurveBuild) error
	LatestCurve(ctx context.Context, name string) (*CurveBuild, error)
	Migrate(ctx context.Context) error
}

type curveRepository struct {
	db *sql.DB
}

func NewCurveRepository(db *sql.DB) CurveRepository {
	return &curveRepository{db: db}
}

// Migrate creates the schema if it does not exist.
func (r *curveRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// SaveCurve writes the build header and bulk-loads its nodes in one transaction.
func (r *curveRepository) SaveCurve(ctx context.Context, b CurveBuild) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO curve_builds (id, curve_name, reference_date, trait, interpolation, day_count, passes, built_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.Name, b.ReferenceDate, b.Trait, b.Interpolation, b.DayCount, b.Passes, b.BuiltAt,
	); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("curve_nodes", "build_id", "node_date", "node_time", "node_value"))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, n := range b.Nodes {
		if _, err := stmt.ExecContext(ctx, b.ID, n.Date, n.Time, n.Value); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// LatestCurve loads the most recent build of a curve with its nodes in date order.
func (r *curveRepository) LatestCurve(ctx context.Context, name string) (*CurveBuild, error) {
	b := CurveBuild{Name: name}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, reference_date, trait, interpolation, day_count, passes, built_at
		FROM curve_builds
		WHERE curve_name = $1
		ORDER BY built_at DESC
		LIMIT 1`, name,
	).Scan(&b.ID, &b.ReferenceDate, &b.Trait, &b.Interpolation, &b.DayCount, &b.Passes, &b.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT node_date, node_time, node_value
		FROM curve_nodes
		WHERE build_id = $1
		ORDER BY node_date`, b.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var n curve.Node
		if err := rows.Scan(&n.Date, &n.Time, &n.Value); err != nil {
			return nil, err
		}
		b.Nodes = append(b.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}
