package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, full_name, organization, role, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		user.ID, strings.ToLower(user.Email), user.FullName, user.Organization,
		string(user.Role), user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrInvalidInput, "create user",
				fmt.Errorf("email already registered"))
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, full_name, organization, role, password_hash, created_at, updated_at
FROM users
WHERE email = $1
`, strings.ToLower(email))

	var user domain.User
	var fullName, org sql.NullString
	var role string
	err := row.Scan(&user.ID, &user.Email, &fullName, &org, &role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get user", fmt.Errorf("email %s", email))
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.FullName = fullName.String
	user.Organization = org.String
	user.Role = domain.UserRole(role)
	return &user, nil
}

// isUniqueViolation matches the Postgres 23505 SQLSTATE without binding to a
// driver-specific error type.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
