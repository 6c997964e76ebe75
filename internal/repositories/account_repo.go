package repositories

import (
	"context"

	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `user_id, type, provider, provider_account_id, access_token, refresh_token, expires_at, token_type, scope`

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var accessToken, refreshToken, tokenType, scope *string

	err := scanner.Scan(
		&a.UserID, &a.Type, &a.Provider, &a.ProviderAccountID,
		&accessToken, &refreshToken, &a.ExpiresAt, &tokenType, &scope,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	a.AccessToken = derefString(accessToken)
	a.RefreshToken = derefString(refreshToken)
	a.TokenType = derefString(tokenType)
	a.Scope = derefString(scope)

	return &a, nil
}

// GetByProvider finds the link for an external identity
func (r *AccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE provider = $1 AND provider_account_id = $2`

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, provider, providerAccountID))
}

// UpdateTokens stores the latest provider tokens for an existing link
func (r *AccountRepository) UpdateTokens(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET access_token = $1, refresh_token = $2, expires_at = $3, token_type = $4, scope = $5
		WHERE provider = $6 AND provider_account_id = $7
	`

	result, err := r.db.Pool.Exec(ctx, query,
		nullString(account.AccessToken), nullString(account.RefreshToken), account.ExpiresAt,
		nullString(account.TokenType), nullString(account.Scope),
		account.Provider, account.ProviderAccountID,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CreateWithUser inserts a new user and its account link atomically
func (r *AccountRepository) CreateWithUser(ctx context.Context, user *models.User, account *models.Account) (*models.User, error) {
	var created *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = createUser(ctx, tx, user)
		if err != nil {
			return err
		}

		account.UserID = created.ID
		query := `
			INSERT INTO accounts (` + accountColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.Exec(ctx, query,
			account.UserID, account.Type, account.Provider, account.ProviderAccountID,
			nullString(account.AccessToken), nullString(account.RefreshToken), account.ExpiresAt,
			nullString(account.TokenType), nullString(account.Scope),
		)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
