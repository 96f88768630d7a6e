package triage

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

type assessmentRepoPG struct{ conn queryable }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{conn: pool}
}

const assessmentCols = `id, primary_condition, severity, confidence, input, result, created_by, created_at`

func (r *assessmentRepoPG) scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	var input, result []byte
	if err := row.Scan(&a.ID, &a.PrimaryCondition, &a.Severity, &a.Confidence,
		&input, &result, &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(input, &a.Input); err != nil {
		return nil, fmt.Errorf("decode input for assessment %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(result, &a.Result); err != nil {
		return nil, fmt.Errorf("decode result for assessment %s: %w", a.ID, err)
	}
	return &a, nil
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	input, err := json.Marshal(a.Input)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.conn.QueryRow(ctx, `
		INSERT INTO triage_assessment (id, primary_condition, severity, confidence, input, result, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		a.ID, a.PrimaryCondition, a.Severity, a.Confidence, input, result, a.CreatedBy,
	).Scan(&a.CreatedAt)
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return r.scanAssessment(r.conn.QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM triage_assessment WHERE id = $1`, id))
}

func (r *assessmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Assessment, int, error) {
	return r.Search(ctx, nil, limit, offset)
}

func (r *assessmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Assessment, int, error) {
	query := `SELECT ` + assessmentCols + ` FROM triage_assessment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM triage_assessment WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["severity"]; ok {
		query += fmt.Sprintf(` AND severity = $%d`, idx)
		countQuery += fmt.Sprintf(` AND severity = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["condition"]; ok {
		query += fmt.Sprintf(` AND primary_condition ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND primary_condition ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
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
	var items []*Assessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
