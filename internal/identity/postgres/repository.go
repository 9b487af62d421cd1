// Package postgres provides the PostgreSQL implementation of the identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/identity"
)

const userColumns = `email, name, role, image, phone, address, education, linkedin, password_hash, created_at, updated_at`

// Repository implements the identity.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// profileColumns returns the set profile fields as column names and values in a stable order.
// Column names come from identity.Profile.Fields and are never user input.
func profileColumns(profile identity.Profile) ([]string, []interface{}) {
	fields := profile.Fields()
	columns := make([]string, 0, len(fields))
	for k := range fields {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	values := make([]interface{}, 0, len(columns))
	for _, c := range columns {
		values = append(values, fields[c])
	}
	return columns, values
}

// UpsertUser creates the user if missing and sets the supplied profile fields.
func (r *Repository) UpsertUser(ctx context.Context, email string, profile identity.Profile, passwordHash string) error {
	columns, values := profileColumns(profile)
	if passwordHash != "" {
		columns = append(columns, "password_hash")
		values = append(values, passwordHash)
	}

	insertCols := append([]string{"email"}, columns...)
	args := append([]interface{}{email}, values...)
	placeholders := make([]string, len(insertCols))
	for i := range insertCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "updated_at = NOW()")

	query := fmt.Sprintf(`
		INSERT INTO users (%s)
		VALUES (%s)
		ON CONFLICT (email) DO UPDATE SET %s
	`, strings.Join(insertCols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all users in creation order.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, email`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateProfile sets the supplied fields on an existing user.
func (r *Repository) UpdateProfile(ctx context.Context, email string, profile identity.Profile) error {
	columns, values := profileColumns(profile)

	sets := make([]string, 0, len(columns)+1)
	for i, c := range columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+2))
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE users SET %s WHERE email = $1`, strings.Join(sets, ", "))
	return r.execOne(ctx, query, append([]interface{}{email}, values...)...)
}

// SetRole changes the role of an existing user.
func (r *Repository) SetRole(ctx context.Context, email string, role domain.Role) error {
	return r.execOne(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE email = $1`, email, string(role))
}

// DeleteUser removes a user by email.
func (r *Repository) DeleteUser(ctx context.Context, email string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE email = $1`, email)
}

func (r *Repository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	err := row.Scan(
		&user.Email,
		&user.Name,
		&role,
		&user.Image,
		&user.Phone,
		&user.Address,
		&user.Education,
		&user.LinkedIn,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}
