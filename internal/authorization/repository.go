package authorization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Token is an idTag known to the gateway.
type Token struct {
	Key        string                   `json:"id_tag"`
	Status     ocpp.AuthorizationStatus `json:"status"`
	ExpiryDate *time.Time               `json:"expiry_date,omitempty"`
	ParentKey  string                   `json:"parent_id_tag,omitempty"`
}

// Repository reads and writes authorization tokens.
type Repository interface {
	// GetToken retrieves a token by key.
	// Returns ErrTokenNotFound if it does not exist.
	GetToken(ctx context.Context, key string) (*Token, error)

	// UpsertToken creates or replaces a token.
	UpsertToken(ctx context.Context, t *Token) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetToken retrieves a token by key.
func (r *SQLiteRepository) GetToken(ctx context.Context, key string) (*Token, error) {
	var (
		t              Token
		status         string
		expiry, parent sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id_tag, status, expiry_date, parent_id_tag FROM authorization_tokens WHERE id_tag = ?",
		key,
	).Scan(&t.Key, &status, &expiry, &parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("querying token: %w", err)
	}
	t.Status = ocpp.AuthorizationStatus(status)
	t.ParentKey = parent.String
	if t.ExpiryDate, err = database.ParseNullableTime(expiry); err != nil {
		return nil, fmt.Errorf("parsing token expiry: %w", err)
	}
	return &t, nil
}

// UpsertToken creates or replaces a token.
func (r *SQLiteRepository) UpsertToken(ctx context.Context, t *Token) error {
	if t.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidToken)
	}
	if t.Status == "" {
		t.Status = ocpp.AuthorizationAccepted
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidToken, t.Status)
	}

	now := database.FormatTime(time.Now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_tokens (id_tag, status, expiry_date, parent_id_tag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id_tag) DO UPDATE SET
			status = excluded.status,
			expiry_date = excluded.expiry_date,
			parent_id_tag = excluded.parent_id_tag,
			updated_at = excluded.updated_at`,
		t.Key,
		string(t.Status),
		database.NullableTime(t.ExpiryDate),
		database.NullableString(t.ParentKey),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upserting token: %w", err)
	}
	return nil
}
