package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactEmail returns the address on file, or "" when there is none.
func (u *User) ContactEmail() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return strings.TrimSpace(*u.Email)
}

type Course struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	InstructorID *uuid.UUID `json:"instructor_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SplitTags splits a comma-separated tag list, trimming whitespace and
// dropping empty entries.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tags = append(tags, p)
	}
	return tags
}

func trimLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
