package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypulse-backend/internal/models"
)

// UserRepo reads users, courses and enrollments. Their lifecycle is owned by
// the account and course services; this backend never writes them.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, created_at
		FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *UserRepo) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c := &models.Course{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, instructor_id, created_at
		FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.InstructorID, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *UserRepo) ListEnrolled(ctx context.Context, courseID uuid.UUID) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.full_name, u.role, u.created_at
		FROM enrollments e
		JOIN users u ON u.id = e.student_id
		WHERE e.course_id = $1
		ORDER BY u.full_name, u.id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
