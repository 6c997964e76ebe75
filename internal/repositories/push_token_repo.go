package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PushTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPushTokenRepository(db *database.DB) *PushTokenRepository {
	return &PushTokenRepository{pool: db.Pool}
}

const pushTokenColumns = `p.id, p.user_id, p.expo_token, p.device_name, p.session_token, p.is_valid, p.created_at, p.last_used, s.expires`

func scanPushTokenRow(scanner rowScanner) (*models.PushToken, error) {
	var p models.PushToken

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.ExpoToken, &p.DeviceName, &p.SessionToken,
		&p.IsValid, &p.CreatedAt, &p.LastUsed, &p.SessionExpires,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func scanPushTokenRows(rows pgx.Rows) ([]*models.PushToken, error) {
	defer rows.Close()

	tokens := make([]*models.PushToken, 0)
	for rows.Next() {
		token, err := scanPushTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return tokens, nil
}

// Upsert registers a device token for a user. A token the user already owns is
// revalidated and relinked to the current session; its device name is kept
// unless a new one is supplied. New rows without a name get DefaultDeviceName.
// created reports whether a new row was inserted.
func (r *PushTokenRepository) Upsert(ctx context.Context, token *models.PushToken, now time.Time) (string, bool, error) {
	query := `
		INSERT INTO push_tokens (id, user_id, expo_token, device_name, session_token, is_valid, created_at, last_used)
		VALUES ($1, $2, $3, COALESCE($4, $7), $5, true, $6, $6)
		ON CONFLICT (user_id, expo_token) DO UPDATE
		SET is_valid = true,
		    last_used = EXCLUDED.last_used,
		    session_token = EXCLUDED.session_token,
		    device_name = COALESCE($4, push_tokens.device_name)
		RETURNING id, (xmax = 0) AS inserted
	`

	var id string
	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		uuid.New().String(), token.UserID, token.ExpoToken, token.DeviceName, token.SessionToken, now, models.DefaultDeviceName,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, database.MapPostgresError(err)
	}

	return id, inserted, nil
}

// ListByUser returns a user's tokens, most recently used first
func (r *PushTokenRepository) ListByUser(ctx context.Context, userID string) ([]*models.PushToken, error) {
	query := `
		SELECT ` + pushTokenColumns + `
		FROM push_tokens p
		LEFT JOIN sessions s ON s.session_token = p.session_token
		WHERE p.user_id = $1
		ORDER BY p.last_used DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanPushTokenRows(rows)
}

// ListBySession returns tokens registered through a session
func (r *PushTokenRepository) ListBySession(ctx context.Context, sessionToken string) ([]*models.PushToken, error) {
	query := `
		SELECT ` + pushTokenColumns + `
		FROM push_tokens p
		LEFT JOIN sessions s ON s.session_token = p.session_token
		WHERE p.session_token = $1
		ORDER BY p.last_used DESC
	`

	rows, err := r.pool.Query(ctx, query, sessionToken)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanPushTokenRows(rows)
}

// UpdateOwned changes a token only if userID owns it
func (r *PushTokenRepository) UpdateOwned(ctx context.Context, id, userID string, deviceName *string, isValid *bool, now time.Time) error {
	query := `
		UPDATE push_tokens
		SET device_name = COALESCE($1, device_name),
		    is_valid = COALESCE($2, is_valid),
		    last_used = $3
		WHERE id = $4 AND user_id = $5
	`

	result, err := r.pool.Exec(ctx, query, deviceName, isValid, now, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteOwned removes a token only if userID owns it
func (r *PushTokenRepository) DeleteOwned(ctx context.Context, id, userID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM push_tokens WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// InvalidateBySession marks every token of a session invalid and returns how many changed
func (r *PushTokenRepository) InvalidateBySession(ctx context.Context, sessionToken string) (int64, error) {
	query := `UPDATE push_tokens SET is_valid = false WHERE session_token = $1 AND is_valid`

	result, err := r.pool.Exec(ctx, query, sessionToken)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
