package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, name, email, username, image, role, created_at, last_seen, metadata`

// scanUserRow handles nullable profile fields
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var name, email, username, image *string

	err := scanner.Scan(
		&user.ID, &name, &email, &username, &image,
		&user.Role, &user.CreatedAt, &user.LastSeen, &user.Metadata,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Name = derefString(name)
	user.Email = derefString(email)
	user.Username = derefString(username)
	user.Image = derefString(image)
	if user.Metadata == nil {
		user.Metadata = models.Metadata{}
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return createUser(ctx, r.pool, user)
}

// createUser is shared with the account repository's transactional sign-up
func createUser(ctx context.Context, q querier, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleRestricted
	}
	if user.Metadata == nil {
		user.Metadata = models.Metadata{}
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO users (id, name, email, username, image, role, created_at, last_seen, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		RETURNING ` + userColumns

	return scanUserRow(q.QueryRow(ctx, query,
		user.ID, nullString(user.Name), nullString(user.Email), nullString(user.Username),
		nullString(user.Image), user.Role, now, user.Metadata,
	))
}

// UpdateProfile refreshes provider-sourced fields and last_seen after a sign-in
func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, image string, seenAt time.Time) (*models.User, error) {
	query := `
		UPDATE users SET name = $1, image = $2, last_seen = $3
		WHERE id = $4
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, nullString(name), nullString(image), seenAt, id))
}

// TouchLastSeen records activity without reading the row back
func (r *UserRepository) TouchLastSeen(ctx context.Context, id string, seenAt time.Time) error {
	query := `UPDATE users SET last_seen = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, seenAt, id)
	return database.MapPostgresError(err)
}

// SetMetadataString merges a single string key into the metadata map,
// leaving every other key untouched.
func (r *UserRepository) SetMetadataString(ctx context.Context, id, key, value string) (models.Metadata, error) {
	query := `
		UPDATE users
		SET metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object($1::text, $2::text)
		WHERE id = $3
		RETURNING metadata
	`

	var metadata models.Metadata
	if err := r.pool.QueryRow(ctx, query, key, value, id).Scan(&metadata); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return metadata, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
