// Package session is the process-wide holder of the authenticated identity.
//
// Every state change goes through apply, under one mutex, and is then
// published to subscribers outside the lock. While Loading is false the
// state is either fully authenticated (token and user) or empty.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/service"
	"github.com/and161185/rideshare/internal/storage"
)

// AuthNotifier reports global authentication failures. The api client
// implements it.
type AuthNotifier interface {
	OnAuthFailure(fn func()) (cancel func())
}

// Store owns the Session. It is safe for concurrent use.
type Store struct {
	users service.UserService
	kv    storage.Store
	log   *zap.Logger
	now   func() time.Time

	mu    sync.Mutex
	state model.Session

	subMu  sync.Mutex
	subs   map[int]func(model.Session)
	nextID int

	unregister func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithAuthNotifier makes a global 401 clear the cached user as well.
func WithAuthNotifier(n AuthNotifier) Option {
	return func(s *Store) {
		s.unregister = n.OnAuthFailure(s.onAuthFailure)
	}
}

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a Store in the loading state. Call Init to resolve it.
func New(users service.UserService, kv storage.Store, opts ...Option) *Store {
	s := &Store{
		users: users,
		kv:    kv,
		log:   zap.NewNop(),
		now:   time.Now,
		state: model.Session{Loading: true},
		subs:  map[int]func(model.Session){},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close detaches the store from the auth notifier.
func (s *Store) Close() {
	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.state)
}

// Subscribe registers fn to be called with the new state after every
// transition. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(model.Session)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// apply is the single transition function.
func (s *Store) apply(next model.Session) {
	s.mu.Lock()
	s.state = next
	snap := copySession(next)
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(model.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) setLoading() {
	s.mu.Lock()
	next := s.state
	s.mu.Unlock()
	next.Loading = true
	s.apply(next)
}

// Init resolves the persisted session. A persisted token that the backend
// rejects is discarded along with everything else. When the backend cannot
// be reached the cached user snapshot is kept.
func (s *Store) Init(ctx context.Context) error {
	s.setLoading()

	tok, err := storage.Lookup(ctx, s.kv, storage.KeyToken)
	if err != nil {
		s.apply(model.Session{})
		return fmt.Errorf("read token: %w", err)
	}
	if tok == "" {
		s.apply(model.Session{})
		return nil
	}
	refresh, _ := storage.Lookup(ctx, s.kv, storage.KeyRefreshToken)

	if expired(tok, s.now()) && refresh != "" {
		t, rerr := s.users.RefreshToken(ctx, refresh)
		if rerr != nil {
			if unreachable(rerr) {
				s.settleOffline(ctx, tok, refresh, rerr)
				return nil
			}
			s.log.Info("stored refresh token rejected", zap.Error(rerr))
			s.clear(ctx)
			return nil
		}
		if err := s.persistTokens(ctx, t); err != nil {
			s.clear(ctx)
			return err
		}
		tok, refresh = t.Access, t.Refresh
	}

	u, err := s.users.Me(ctx)
	if err != nil {
		if unreachable(err) {
			s.settleOffline(ctx, tok, refresh, err)
			return nil
		}
		s.log.Info("stored token rejected", zap.Error(err))
		s.clear(ctx)
		return nil
	}
	if err := s.persistUser(ctx, u); err != nil {
		s.log.Warn("persist user snapshot", zap.Error(err))
	}
	s.apply(model.Session{User: u, Token: tok, RefreshToken: refresh})
	return nil
}

// unreachable reports a failure to reach the backend, as opposed to a
// rejection by it.
func unreachable(err error) bool {
	return errors.Is(err, errs.ErrNetwork) || errors.Is(err, errs.ErrTimeout)
}

// settleOffline resolves Init when the backend could not be reached. The
// persisted keys stay for the next run; the session is the cached user
// snapshot, or unauthenticated when there is none.
func (s *Store) settleOffline(ctx context.Context, tok, refresh string, cause error) {
	cached, err := CachedUser(ctx, s.kv)
	if err != nil || cached == nil {
		s.log.Warn("backend unreachable, no cached user", zap.Error(cause))
		s.apply(model.Session{})
		return
	}
	s.log.Warn("backend unreachable, using cached user", zap.Error(cause))
	s.apply(model.Session{User: cached, Token: tok, RefreshToken: refresh})
}

// Login establishes a session. Rejected credentials surface as errs.ErrAuth.
// If the user cannot be fetched afterwards the persisted tokens are rolled back.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	t, _, err := s.users.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if t.Access == "" {
		return nil, &errs.APIError{Kind: errs.ErrUnknown, Message: "login response carried no token"}
	}
	if err := s.persistTokens(ctx, t); err != nil {
		s.rollback(ctx)
		return nil, err
	}

	u, err := s.users.Me(ctx)
	if err != nil {
		s.rollback(ctx)
		return nil, err
	}
	if err := s.persistUser(ctx, u); err != nil {
		s.rollback(ctx)
		return nil, err
	}
	s.apply(model.Session{User: u, Token: t.Access, RefreshToken: t.Refresh})
	return copyUser(u), nil
}

// Register creates the account and logs in with the same credentials.
func (s *Store) Register(ctx context.Context, in model.RegisterInput) (*model.User, error) {
	if _, err := s.users.Register(ctx, in); err != nil {
		return nil, err
	}
	return s.Login(ctx, in.Email, in.Password)
}

// Logout invalidates the refresh token server-side on a best-effort basis.
// Local state and persisted keys are cleared whatever the server says; the
// server error is returned only so the caller can log it.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.state.RefreshToken
	s.mu.Unlock()
	if refresh == "" {
		refresh, _ = storage.Lookup(ctx, s.kv, storage.KeyRefreshToken)
	}

	var serverErr error
	if refresh != "" {
		serverErr = s.users.Logout(ctx, refresh)
		if serverErr != nil {
			s.log.Info("server logout failed", zap.Error(serverErr))
		}
	}
	s.clear(context.WithoutCancel(ctx))
	return serverErr
}

// RefreshUser re-fetches the current user and replaces the cached copy.
func (s *Store) RefreshUser(ctx context.Context) (*model.User, error) {
	u, err := s.users.Me(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.persistUser(ctx, u); err != nil {
		s.log.Warn("persist user snapshot", zap.Error(err))
	}

	s.mu.Lock()
	next := s.state
	s.mu.Unlock()
	if next.Token == "" {
		next.Token, _ = storage.Lookup(ctx, s.kv, storage.KeyToken)
	}
	if next.Token == "" {
		// Logged out while the request was in flight.
		return copyUser(u), nil
	}
	next.User = u
	next.Loading = false
	s.apply(next)
	return copyUser(u), nil
}

// UpdateProfile patches the profile then refreshes the cached user.
func (s *Store) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (*model.User, error) {
	if upd.Empty() {
		return s.RefreshUser(ctx)
	}
	if _, err := s.users.UpdateMe(ctx, upd); err != nil {
		return nil, err
	}
	return s.RefreshUser(ctx)
}

// RefreshToken exchanges the refresh token for a new access token. Any
// failure ends the session.
func (s *Store) RefreshToken(ctx context.Context) error {
	s.mu.Lock()
	cur := s.state
	s.mu.Unlock()
	refresh := cur.RefreshToken
	if refresh == "" {
		refresh, _ = storage.Lookup(ctx, s.kv, storage.KeyRefreshToken)
	}
	if refresh == "" {
		return errs.ErrNotAuthenticated
	}

	t, err := s.users.RefreshToken(ctx, refresh)
	if err != nil {
		s.clear(context.WithoutCancel(ctx))
		return err
	}
	if err := s.persistTokens(ctx, t); err != nil {
		s.clear(context.WithoutCancel(ctx))
		return err
	}
	cur.Token, cur.RefreshToken = t.Access, t.Refresh
	cur.Loading = false
	if cur.User == nil {
		// A token without a user is never published.
		u, err := s.users.Me(ctx)
		if err != nil {
			s.clear(context.WithoutCancel(ctx))
			return err
		}
		cur.User = u
	}
	s.apply(cur)
	return nil
}

// TokenExpiresAt returns the expiry claim of the current access token, or
// the zero time when unknown.
func (s *Store) TokenExpiresAt() time.Time {
	s.mu.Lock()
	tok := s.state.Token
	s.mu.Unlock()
	return expiresAt(tok)
}

// onAuthFailure runs after the api client cleared the persisted keys.
func (s *Store) onAuthFailure() {
	s.mu.Lock()
	loading := s.state.Loading
	s.mu.Unlock()
	s.apply(model.Session{Loading: loading})
}

func (s *Store) clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, storage.SessionKeys...); err != nil {
		s.log.Warn("clear persisted session", zap.Error(err))
	}
	s.apply(model.Session{})
}

// rollback undoes a half-finished login without touching the published state.
func (s *Store) rollback(ctx context.Context) {
	if err := s.kv.Delete(context.WithoutCancel(ctx), storage.SessionKeys...); err != nil {
		s.log.Warn("roll back login", zap.Error(err))
	}
	s.mu.Lock()
	had := s.state.User != nil
	s.mu.Unlock()
	if had {
		s.apply(model.Session{})
	}
}

func (s *Store) persistTokens(ctx context.Context, t model.Tokens) error {
	if err := s.kv.Set(ctx, storage.KeyToken, t.Access); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if t.Refresh == "" {
		return s.kv.Delete(ctx, storage.KeyRefreshToken)
	}
	if err := s.kv.Set(ctx, storage.KeyRefreshToken, t.Refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

func (s *Store) persistUser(ctx context.Context, u *model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.KeyUser, string(b))
}

// CachedUser returns the persisted user snapshot without a network call.
func CachedUser(ctx context.Context, kv storage.Store) (*model.User, error) {
	raw, err := kv.Get(ctx, storage.KeyUser)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode user snapshot: %w", err)
	}
	return &u, nil
}

// expiresAt reads the exp claim without verifying the signature; the
// backend is the only party that verifies.
func expiresAt(tok string) time.Time {
	if tok == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(tok, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func expired(tok string, now time.Time) bool {
	exp := expiresAt(tok)
	return !exp.IsZero() && !now.Before(exp)
}

func copySession(in model.Session) model.Session {
	in.User = copyUser(in.User)
	return in
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
