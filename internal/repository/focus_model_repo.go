package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

type FocusModelRepo struct {
	pool *pgxpool.Pool
}

func NewFocusModelRepo(pool *pgxpool.Pool) *FocusModelRepo {
	return &FocusModelRepo{pool: pool}
}

const focusModelColumns = `id, student_id, course_id, typical_focus_loss_minutes, confidence::float8,
	sessions_analyzed, last_trained_at, created_at, updated_at`

func scanFocusModel(row scanner) (*models.FocusModel, error) {
	m := &models.FocusModel{}
	err := row.Scan(
		&m.ID, &m.StudentID, &m.CourseID, &m.TypicalFocusLossMinutes, &m.Confidence,
		&m.SessionsAnalyzed, &m.LastTrainedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns the model for (student, course). A nil course selects the
// student's global model.
func (r *FocusModelRepo) Get(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID) (*models.FocusModel, error) {
	m, err := scanFocusModel(r.pool.QueryRow(ctx, `
		SELECT `+focusModelColumns+`
		FROM focus_models
		WHERE student_id = $1 AND course_id IS NOT DISTINCT FROM $2`, studentID, courseID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// Upsert writes the model keyed by (student, course). Concurrent builds are
// last-writer-wins.
func (r *FocusModelRepo) Upsert(ctx context.Context, m *models.FocusModel) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO focus_models (student_id, course_id, typical_focus_loss_minutes, confidence, sessions_analyzed, last_trained_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uq_focus_models_key DO UPDATE SET
			typical_focus_loss_minutes = EXCLUDED.typical_focus_loss_minutes,
			confidence = EXCLUDED.confidence,
			sessions_analyzed = EXCLUDED.sessions_analyzed,
			last_trained_at = EXCLUDED.last_trained_at,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		m.StudentID, m.CourseID, m.TypicalFocusLossMinutes, m.Confidence, m.SessionsAnalyzed, m.LastTrainedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert focus model: %w", err)
	}
	return nil
}
