package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

// StudySessionRepo reads session history. Soft-deleted rows are never returned.
type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

const sessionColumns = `
	s.id, s.student_id, s.course_id, COALESCE(c.name, ''), s.started_at,
	s.duration_minutes, s.mood, s.distractions, s.is_deleted, s.created_at`

func scanSession(row scanner, s *models.StudySession) error {
	return row.Scan(
		&s.ID, &s.StudentID, &s.CourseID, &s.CourseName, &s.StartedAt,
		&s.DurationMinutes, &s.Mood, &s.Distractions, &s.IsDeleted, &s.CreatedAt,
	)
}

// ListForStudent returns a student's sessions started in [from, to], oldest
// first, optionally scoped to one course.
func (r *StudySessionRepo) ListForStudent(ctx context.Context, studentID uuid.UUID, courseID *uuid.UUID, from, to time.Time) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+sessionColumns+`
		FROM study_sessions s
		LEFT JOIN courses c ON c.id = s.course_id
		WHERE s.student_id = $1
		  AND ($2::uuid IS NULL OR s.course_id = $2)
		  AND s.started_at >= $3
		  AND s.started_at <= $4
		  AND NOT s.is_deleted
		ORDER BY s.started_at, s.id`, studentID, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list study sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.StudySession, 0)
	for rows.Next() {
		var s models.StudySession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListForCourse returns every enrolled student's sessions in a course for [from, to].
func (r *StudySessionRepo) ListForCourse(ctx context.Context, courseID uuid.UUID, from, to time.Time) ([]models.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+sessionColumns+`
		FROM study_sessions s
		JOIN courses c ON c.id = s.course_id
		JOIN enrollments e ON e.course_id = s.course_id AND e.student_id = s.student_id
		WHERE s.course_id = $1
		  AND s.started_at >= $2
		  AND s.started_at <= $3
		  AND NOT s.is_deleted
		ORDER BY s.started_at, s.id`, courseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list course sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.StudySession, 0)
	for rows.Next() {
		var s models.StudySession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
