// Package memory provides the in-process Store driver. It backs tests and
// single-process deployments that don't need durability.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/auth/domain"
	"github.com/gatehouse-dev/gatehouse/internal/auth/store"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	sessions map[string]domain.Session
	tokens   map[string]domain.RefreshToken // keyed by token hash
}

func New() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		sessions: make(map[string]domain.Session),
		tokens:   make(map[string]domain.RefreshToken),
	}
}

func (s *Store) Users() store.Users                 { return (*usersRepo)(s) }
func (s *Store) Sessions() store.Sessions           { return (*sessionsRepo)(s) }
func (s *Store) RefreshTokens() store.RefreshTokens { return (*tokensRepo)(s) }
func (s *Store) Ping(ctx context.Context) error     { return nil }
func (s *Store) Close() error                       { return nil }

type usersRepo Store

func (r *usersRepo) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (r *usersRepo) CreateUser(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrAlreadyExists
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *usersRepo) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	return r.update(userID, func(u *domain.User) {
		u.PasswordHash = newHash
	})
}

func (r *usersRepo) SetEmailVerified(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) {
		u.EmailVerified = true
		if u.Status == domain.StatusPending {
			u.Status = domain.StatusActive
		}
	})
}

func (r *usersRepo) UpdateMFASecret(_ context.Context, userID, secret string) error {
	return r.update(userID, func(u *domain.User) {
		u.MFASecret = &secret
	})
}

func (r *usersRepo) EnableMFA(_ context.Context, userID string) error {
	now := time.Now().UTC()
	return r.update(userID, func(u *domain.User) {
		u.MFAEnabled = &now
	})
}

func (r *usersRepo) DisableMFA(_ context.Context, userID string) error {
	return r.update(userID, func(u *domain.User) {
		u.MFAEnabled = nil
		u.MFASecret = nil
	})
}

func (r *usersRepo) update(userID string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u
	return nil
}

type sessionsRepo Store

func (r *sessionsRepo) CreateSession(_ context.Context, sess domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.ID]; ok {
		return store.ErrAlreadyExists
	}
	r.sessions[sess.ID] = sess
	return nil
}

func (r *sessionsRepo) GetSessionByID(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (r *sessionsRepo) TouchSession(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	sess.LastAccessAt = at
	r.sessions[id] = sess
	return nil
}

func (r *sessionsRepo) RevokeSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	sess.Active = false
	r.sessions[id] = sess
	return nil
}

func (r *sessionsRepo) RevokeUserSessions(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sess := range r.sessions {
		if sess.UserID == userID {
			sess.Active = false
			r.sessions[id] = sess
		}
	}
	return nil
}

func (r *sessionsRepo) DeleteExpiredSessions(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sess := range r.sessions {
		if now.After(sess.ExpiresAt) {
			delete(r.sessions, id)
		}
	}
	return nil
}

type tokensRepo Store

func (r *tokensRepo) CreateRefreshToken(_ context.Context, t domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[t.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	r.tokens[t.TokenHash] = t
	return nil
}

func (r *tokensRepo) GetRefreshTokenByHash(_ context.Context, hash string) (domain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[hash]
	if !ok {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *tokensRepo) RevokeRefreshToken(_ context.Context, hash, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[hash]
	if !ok {
		return store.ErrNotFound
	}
	t.Revoked = true
	t.RevokedReason = reason
	t.RevokedAt = &at
	r.tokens[hash] = t
	return nil
}

func (r *tokensRepo) RevokeSessionRefreshTokens(_ context.Context, sessionID, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, t := range r.tokens {
		if t.SessionID == sessionID && !t.Revoked {
			t.Revoked = true
			t.RevokedReason = reason
			t.RevokedAt = &at
			r.tokens[hash] = t
		}
	}
	return nil
}

func (r *tokensRepo) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, t := range r.tokens {
		if now.After(t.ExpiresAt) {
			delete(r.tokens, hash)
		}
	}
	return nil
}
