package forecast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type runRepoPG struct{ conn queryable }

func NewRunRepoPG(pool *pgxpool.Pool) RunRepository { return &runRepoPG{conn: pool} }

const runCols = `id, disease, location, horizon, scenario, series, created_by, created_at`

func (r *runRepoPG) scanRun(row pgx.Row) (*Run, error) {
	var run Run
	var series []byte
	if err := row.Scan(&run.ID, &run.Disease, &run.Location, &run.Horizon, &run.Scenario,
		&series, &run.CreatedBy, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(series, &run.Series); err != nil {
		return nil, fmt.Errorf("decode series for run %s: %w", run.ID, err)
	}
	return &run, nil
}

func (r *runRepoPG) Create(ctx context.Context, run *Run) error {
	run.ID = uuid.New()
	series, err := json.Marshal(run.Series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	return r.conn.QueryRow(ctx, `
		INSERT INTO forecast_run (id, disease, location, horizon, scenario, series, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		run.ID, run.Disease, run.Location, run.Horizon, run.Scenario, series, run.CreatedBy,
	).Scan(&run.CreatedAt)
}

func (r *runRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	return r.scanRun(r.conn.QueryRow(ctx, `SELECT `+runCols+` FROM forecast_run WHERE id = $1`, id))
}

func (r *runRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM forecast_run WHERE id = $1`, id)
	return err
}

func (r *runRepoPG) List(ctx context.Context, limit, offset int) ([]*Run, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

func (r *runRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Run, int, error) {
	query := `SELECT ` + runCols + ` FROM forecast_run WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM forecast_run WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, col := range []string{"disease", "scenario"} {
		if p, ok := params[col]; ok {
			query += fmt.Sprintf(` AND %s = $%d`, col, idx)
			countQuery += fmt.Sprintf(` AND %s = $%d`, col, idx)
			args = append(args, p)
			idx++
		}
	}
	if p, ok := params["location"]; ok {
		query += fmt.Sprintf(` AND UPPER(location) = UPPER($%d)`, idx)
		countQuery += fmt.Sprintf(` AND UPPER(location) = UPPER($%d)`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Run
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, run)
	}
	return items, total, rows.Err()
}
