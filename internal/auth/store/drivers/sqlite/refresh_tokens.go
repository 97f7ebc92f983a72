package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
)

type tokensRepo struct {
	db *sql.DB
}

func (r *tokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, session_id, token_hash,
			expires_at, revoked, revoked_reason, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.SessionID, t.TokenHash,
		t.ExpiresAt, t.Revoked, t.RevokedReason, t.RevokedAt, t.CreatedAt,
	)
	return err
}

func (r *tokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_id, token_hash, expires_at, revoked,
			revoked_reason, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(
		&t.ID, &t.UserID, &t.SessionID, &t.TokenHash, &t.ExpiresAt, &t.Revoked,
		&t.RevokedReason, &t.RevokedAt, &t.CreatedAt,
	)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tokensRepo) RevokeRefreshToken(ctx context.Context, hash, reason string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_reason = ?, revoked_at = ?
		WHERE token_hash = ? AND revoked = 0`,
		reason, at, hash)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID, reason string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_reason = ?, revoked_at = ?
		WHERE session_id = ? AND revoked = 0`,
		reason, at, sessionID)
	return err
}

func (r *tokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, now)
	return err
}
