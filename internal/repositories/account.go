package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/shared"
)

const accountColumns = `
	id, sequence, external_id, display_name, email, access_token, refresh_token,
	token_expiry, session_token, created_at, updated_at, deleted_at
`

// AccountRepository implements [models.Repository] for [models.Account] persistence.
//
// Lookup errors wrap [shared.ErrRecordNotFound] when no live row matches and
// [shared.ErrPersistence] when the database itself fails.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account with generated ID and sequence
func (r *AccountRepository) Create(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("%w: failed to generate sequence: %w", shared.ErrPersistence, err)
	}

	account.SetID(shared.GenerateID())
	account.SetSequence(sequence)

	query := `INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`

	_, err = r.db.Exec(query,
		account.ID(), sequence, account.ExternalID(), account.DisplayName(), account.Email(),
		account.AccessToken(), account.RefreshToken(), nullTime(account.TokenExpiry()),
		account.SessionToken(), account.CreatedAt(), account.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert account: %w", shared.ErrPersistence, err)
	}

	return nil
}

// Upsert inserts the account or, when its external identity already exists, replaces the profile,
// tokens, and session token of the existing row in a single statement.
//
// On return the account carries the persisted row's ID, sequence, and creation time.
func (r *AccountRepository) Upsert(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("%w: failed to generate sequence: %w", shared.ErrPersistence, err)
	}

	now := time.Now()
	query := `
		INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(external_id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN accounts.refresh_token ELSE excluded.refresh_token END,
			token_expiry = excluded.token_expiry,
			session_token = excluded.session_token,
			updated_at = excluded.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.Exec(query,
		shared.GenerateID(), sequence, account.ExternalID(), account.DisplayName(), account.Email(),
		account.AccessToken(), account.RefreshToken(), nullTime(account.TokenExpiry()),
		account.SessionToken(), now, now,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert account: %w", shared.ErrPersistence, err)
	}

	stored, err := r.GetByExternalID(account.ExternalID())
	if err != nil {
		return err
	}

	account.SetID(stored.ID())
	account.SetSequence(stored.Sequence())
	account.SetCreatedAt(stored.CreatedAt())
	account.SetUpdatedAt(stored.UpdatedAt())
	account.SetTokens(stored.AccessToken(), stored.RefreshToken(), stored.TokenExpiry())
	return nil
}

// Get retrieves an account by ID, excluding soft-deleted accounts
func (r *AccountRepository) Get(id string) (*models.Account, error) {
	return r.getBy("id", id)
}

// GetByExternalID retrieves the account for a provider-assigned identity.
func (r *AccountRepository) GetByExternalID(externalID string) (*models.Account, error) {
	return r.getBy("external_id", externalID)
}

// GetBySessionToken retrieves the account currently holding the session token.
//
// Rotated tokens no longer match any row and report [shared.ErrRecordNotFound].
func (r *AccountRepository) GetBySessionToken(token string) (*models.Account, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty session token", shared.ErrRecordNotFound)
	}
	return r.getBy("session_token", token)
}

func (r *AccountRepository) getBy(column, value string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ? AND deleted_at IS NULL`

	account, err := scanAccount(r.db.QueryRow(query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account with %s", shared.ErrRecordNotFound, column)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query account: %w", shared.ErrPersistence, err)
	}

	return account, nil
}

// Update modifies the profile, tokens, and session token of an existing account
func (r *AccountRepository) Update(account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: validation failed: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()

	query := `
		UPDATE accounts
		SET display_name = ?, email = ?, access_token = ?, refresh_token = ?, token_expiry = ?,
			session_token = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		account.DisplayName(), account.Email(), account.AccessToken(), account.RefreshToken(),
		nullTime(account.TokenExpiry()), account.SessionToken(), now, account.ID(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update account: %w", shared.ErrPersistence, err)
	}

	if err := requireRow(result, account.ID()); err != nil {
		return err
	}

	account.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes an account by ID
func (r *AccountRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE accounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete account: %w", shared.ErrPersistence, err)
	}
	return requireRow(result, id)
}

// List retrieves all accounts matching the given criteria, excluding soft-deleted accounts.
//
// Supported criteria keys are "email" and "external_id".
func (r *AccountRepository) List(criteria map[string]any) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE deleted_at IS NULL`
	args := []any{}

	for _, key := range []string{"email", "external_id"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query accounts: %w", shared.ErrPersistence, err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan account: %w", shared.ErrPersistence, err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %w", shared.ErrPersistence, err)
	}

	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		id, externalID, displayName, email string
		accessToken, refreshToken          string
		sessionToken                       string
		sequence                           int
		tokenExpiry, deletedAt             sql.NullTime
		createdAt, updatedAt               time.Time
	)

	err := row.Scan(&id, &sequence, &externalID, &displayName, &email, &accessToken, &refreshToken,
		&tokenExpiry, &sessionToken, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(sequence, externalID, displayName, email)
	account.SetID(id)
	account.SetTokens(accessToken, refreshToken, tokenExpiry.Time)
	account.SetSessionToken(sessionToken)
	account.SetCreatedAt(createdAt)
	account.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		account.SetDeletedAt(&deletedAt.Time)
	}

	return account, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %w", shared.ErrPersistence, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: account not found or already deleted: %s", shared.ErrRecordNotFound, id)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
