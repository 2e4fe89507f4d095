package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

// ReportRepo is the append-only log of generated reports.
type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, rep *models.Report) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reports (report_type, owner_id, course_id, period_start, period_end, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		rep.Type, rep.OwnerID, rep.CourseID, rep.PeriodStart, rep.PeriodEnd, []byte(rep.Payload),
	).Scan(&rep.ID, &rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save %s report: %w", rep.Type, err)
	}
	return nil
}
