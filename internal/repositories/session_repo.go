package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (session_token, user_id, expires) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, session.Token, session.UserID, session.Expires)
	return database.MapPostgresError(err)
}

// GetWithUser resolves a token together with its owner in one round trip
func (r *SessionRepository) GetWithUser(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT s.session_token, s.user_id, s.expires,
		       u.id, u.name, u.email, u.username, u.image, u.role, u.created_at, u.last_seen, u.metadata
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token = $1
	`

	var session models.Session
	var name, email, username, image *string
	user := &models.User{}

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.Token, &session.UserID, &session.Expires,
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
	session.User = user

	return &session, nil
}

// Delete removes a session. Reports whether a row existed.
func (r *SessionRepository) Delete(ctx context.Context, token string) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

// DeleteIfExpired removes the row only when it has already expired at now
func (r *SessionRepository) DeleteIfExpired(ctx context.Context, token string, now time.Time) error {
	query := `DELETE FROM sessions WHERE session_token = $1 AND expires <= $2`

	_, err := r.pool.Exec(ctx, query, token, now)
	return database.MapPostgresError(err)
}

// DeleteExpired purges every session that expired at or before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires <= $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
