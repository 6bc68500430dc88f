package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-todo-client/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Manager owns the session singleton: the current identity, the access/refresh
// token pair, and every operation that mutates them. It is an explicitly
// constructed object injected into the request pipeline and front end, with
// single-instance-per-application semantics left to the caller.
//
// Auth endpoints that mint tokens (sign-in, sign-up, federated sign-in,
// refresh) are called on the bare client; everything else goes through the
// pipeline so an expired access token is refreshed transparently.
type Manager struct {
	client   *api.Client
	pipeline *api.Pipeline
	store    Store
	logger   zerolog.Logger
	nowTime  func() time.Time // nowTime function (injectable for testing)

	mu           sync.RWMutex
	user         *User
	accessToken  string
	refreshToken string
	loading      bool
	lastErr      string
	state        State

	// refreshGroup collapses concurrent refresh attempts into a single
	// remote call. Two requests failing with 401 at nearly the same time
	// would otherwise both rotate the refresh token, and the second rotation
	// invalidates the first's result, forcing a spurious logout.
	refreshGroup singleflight.Group
}

var _ api.TokenSource = (*Manager)(nil)

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a Manager and rehydrates any persisted session. A session
// with an access token starts Authenticated; anything else starts Anonymous.
// A corrupted persisted record is logged and discarded rather than failing
// startup.
func NewManager(client *api.Client, store Store, options ...ManagerOption) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		client:  client,
		store:   store,
		nowTime: time.Now,
		state:   StateAnonymous,
	}
	for _, opt := range options {
		opt(m)
	}

	pipeline, err := api.NewPipeline(client, m)
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager]")
	}
	m.pipeline = pipeline

	persisted, err := store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("could not rehydrate persisted session; starting anonymous")
	} else if persisted != nil {
		m.user = persisted.User
		m.accessToken = persisted.AccessToken
		m.refreshToken = persisted.RefreshToken
		if persisted.AccessToken != "" {
			m.state = StateAuthenticated
		}
	}

	return m, nil
}

// Pipeline returns the authenticated request pipeline bound to this session.
// API services (tasks etc.) dispatch through it.
func (m *Manager) Pipeline() *api.Pipeline {
	return m.pipeline
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Username  string `json:"username,omitempty"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updatePushTokenRequest struct {
	FCMToken string `json:"fcmToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type googleLoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserDB       *struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Firstname string    `json:"firstname"`
		Lastname  string    `json:"lastname"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"userdb"`
	FirebaseUser *struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	} `json:"firebaseUser"`
}

// RegisterParams are the inputs to Register. Email and Password are required.
type RegisterParams struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
	Username  string
}

// Login authenticates with email and password. On success the session holds
// the returned token pair and a placeholder identity, followed by a
// best-effort fetch of the full profile; the fetch failing leaves the
// placeholder in place without rolling back authentication. Authorization
// failures are normalized to InvalidCredentialsErr.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	m.begin(StateAuthenticating)

	var resp tokenPairResponse
	if err := m.client.Do(ctx, http.MethodPost, "/auth/signin", "", signInRequest{Email: email, Password: password}, &resp); err != nil {
		if api.IsAuthorizationFailure(err) {
			err = InvalidCredentialsErr
		}
		return m.failToAnonymous("[Login]", err)
	}

	placeholder := &User{ID: TempUserID, Email: strings.TrimSpace(email), CreatedAt: m.nowTime()}
	m.setAuthenticated(placeholder, resp.AccessToken, resp.RefreshToken)
	m.hydrateProfile(ctx)
	m.endOperation()
	return nil
}

// LoginWithGoogle exchanges a verified identity-provider token for the
// application's own token pair.
func (m *Manager) LoginWithGoogle(ctx context.Context, idToken string) error {
	if strings.TrimSpace(idToken) == "" {
		return ProviderTokenErr
	}
	m.begin(StateAuthenticating)

	var resp googleLoginResponse
	if err := m.client.Do(ctx, http.MethodPost, "/auth/google-login", "", googleLoginRequest{IDToken: idToken}, &resp); err != nil {
		return m.failToAnonymous("[LoginWithGoogle]", err)
	}

	user := userFromGoogleResponse(resp, m.nowTime())
	m.setAuthenticated(user, resp.AccessToken, resp.RefreshToken)
	if user.ID == TempUserID {
		m.hydrateProfile(ctx)
	}
	m.endOperation()
	return nil
}

// Register creates an account and treats the returned tokens as an immediate
// authenticated session.
func (m *Manager) Register(ctx context.Context, params RegisterParams) error {
	if err := validateCredentials(params.Email, params.Password); err != nil {
		return err
	}
	m.begin(StateAuthenticating)

	request := signUpRequest{
		Email:     params.Email,
		Password:  params.Password,
		Firstname: params.Firstname,
		Lastname:  params.Lastname,
		Username:  params.Username,
	}
	var resp tokenPairResponse
	if err := m.client.Do(ctx, http.MethodPost, "/auth/signup", "", request, &resp); err != nil {
		return m.failToAnonymous("[Register]", err)
	}

	placeholder := &User{
		ID:        TempUserID,
		Email:     strings.TrimSpace(params.Email),
		Username:  params.Username,
		Firstname: params.Firstname,
		Lastname:  params.Lastname,
		CreatedAt: m.nowTime(),
	}
	m.setAuthenticated(placeholder, resp.AccessToken, resp.RefreshToken)
	m.hydrateProfile(ctx)
	m.endOperation()
	return nil
}

// Logout clears the local session unconditionally. The remote logout call is
// best effort: its failure is logged, never surfaced, and never blocks or
// rolls back the local clear.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	hasToken := m.accessToken != ""
	m.mu.Unlock()

	if hasToken {
		if err := m.pipeline.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
			m.logger.Warn().Err(err).Msg("remote logout failed; clearing local session anyway")
		}
	}

	m.clearSession("")
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
	return nil
}

// RefreshAccessToken rotates the token pair using the stored refresh token.
// Without a refresh token it resolves immediately with no network call and no
// error. Concurrent callers share a single in-flight refresh. Any refresh
// failure clears the entire session; there is no partial recovery.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	if !m.CanRefresh() {
		return nil
	}
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

func (m *Manager) doRefresh(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.refreshToken
	if refreshToken == "" {
		m.mu.Unlock()
		return nil
	}
	m.loading = true
	m.lastErr = ""
	m.state = StateRefreshing
	m.mu.Unlock()

	var resp tokenPairResponse
	if err := m.client.Do(ctx, http.MethodPost, "/auth/refresh-token", "", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		// Refresh tokens are single-use: a rejection means this session is
		// unrecoverable, so force the caller back to anonymous.
		m.clearSession(err.Error())
		m.persist()
		return errors.Wrap(err, "[RefreshAccessToken]")
	}

	m.mu.Lock()
	m.accessToken = resp.AccessToken
	m.refreshToken = resp.RefreshToken
	m.state = StateAuthenticated
	m.loading = false
	m.mu.Unlock()
	m.persist()
	return nil
}

// ChangePassword requires an authenticated session. Success changes no local
// state beyond clearing the loading flag.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !m.IsAuthenticated() {
		return m.fail("[ChangePassword]", NotAuthenticatedErr)
	}
	if err := validatePasswordChange(oldPassword, newPassword); err != nil {
		return err
	}
	m.begin(StateAuthenticated)

	request := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	if err := m.pipeline.Do(ctx, http.MethodPost, "/auth/change-password", request, nil); err != nil {
		return m.fail("[ChangePassword]", err)
	}
	m.endOperation()
	return nil
}

// UpdatePushToken registers a push-notification token with the remote API and
// merges it into the stored user record.
func (m *Manager) UpdatePushToken(ctx context.Context, token string) error {
	if !m.IsAuthenticated() {
		return m.fail("[UpdatePushToken]", NotAuthenticatedErr)
	}
	m.begin(StateAuthenticated)

	if err := m.pipeline.Do(ctx, http.MethodPatch, "/auth/update-fcm-token", updatePushTokenRequest{FCMToken: token}, nil); err != nil {
		return m.fail("[UpdatePushToken]", err)
	}

	m.mu.Lock()
	if m.user != nil {
		updated := *m.user
		updated.PushToken = token
		m.user = &updated
	}
	m.loading = false
	m.mu.Unlock()
	m.persist()
	return nil
}

// FetchProfile replaces the session's identity record with the remote
// profile. Login and Register call the same fetch internally on a best-effort
// basis.
func (m *Manager) FetchProfile(ctx context.Context) error {
	if !m.IsAuthenticated() {
		return m.fail("[FetchProfile]", NotAuthenticatedErr)
	}
	m.begin(StateAuthenticated)

	if err := m.fetchAndStoreProfile(ctx); err != nil {
		return m.fail("[FetchProfile]", err)
	}
	m.endOperation()
	return nil
}

func (m *Manager) fetchAndStoreProfile(ctx context.Context) error {
	var user User
	if err := m.pipeline.Do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return err
	}
	if user.ID == "" {
		return InvalidProfileErr
	}

	m.mu.Lock()
	// The profile endpoint returns a limited field set; keep a push token the
	// session already knows about.
	if m.user != nil && user.PushToken == "" {
		user.PushToken = m.user.PushToken
	}
	m.user = &user
	m.mu.Unlock()
	m.persist()
	return nil
}

// hydrateProfile is the best-effort follow-up after an auth response: a
// failure leaves the placeholder identity in place and does not surface.
func (m *Manager) hydrateProfile(ctx context.Context) {
	if err := m.fetchAndStoreProfile(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("profile fetch failed; keeping placeholder user")
	}
}

// AccessToken implements api.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// CanRefresh implements api.TokenSource.
func (m *Manager) CanRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshToken != ""
}

// IsAuthenticated reports whether an access token is currently held.
func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// State returns the session's lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the last recorded failure message, or "".
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var user *User
	if m.user != nil {
		copied := *m.user
		user = &copied
	}
	return Session{
		User:            user,
		AccessToken:     m.accessToken,
		RefreshToken:    m.refreshToken,
		IsAuthenticated: m.accessToken != "",
		IsLoading:       m.loading,
		Err:             m.lastErr,
	}
}

// begin starts an operation: clear the previous error, raise the loading
// flag, and move to the given state.
func (m *Manager) begin(next State) {
	m.mu.Lock()
	m.loading = true
	m.lastErr = ""
	m.state = next
	m.mu.Unlock()
}

func (m *Manager) endOperation() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

// fail records the failure message and rethrows, leaving tokens untouched.
func (m *Manager) fail(op string, err error) error {
	m.mu.Lock()
	m.loading = false
	m.lastErr = err.Error()
	m.mu.Unlock()
	return errors.Wrap(err, op)
}

// failToAnonymous records the failure and returns the session to Anonymous.
func (m *Manager) failToAnonymous(op string, err error) error {
	m.clearSession(err.Error())
	m.persist()
	return errors.Wrap(err, op)
}

func (m *Manager) setAuthenticated(user *User, accessToken, refreshToken string) {
	m.mu.Lock()
	m.user = user
	m.accessToken = accessToken
	m.refreshToken = refreshToken
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.persist()
}

func (m *Manager) clearSession(errMsg string) {
	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.state = StateAnonymous
	m.loading = false
	m.lastErr = errMsg
	m.mu.Unlock()
}

func (m *Manager) persist() {
	m.mu.RLock()
	state := &PersistedSession{
		User:            m.user,
		AccessToken:     m.accessToken,
		RefreshToken:    m.refreshToken,
		IsAuthenticated: m.accessToken != "",
	}
	m.mu.RUnlock()
	if err := m.store.Save(state); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session")
	}
}

func userFromGoogleResponse(resp googleLoginResponse, now time.Time) *User {
	user := &User{ID: TempUserID, CreatedAt: now}
	if db := resp.UserDB; db != nil {
		if db.ID != "" {
			user.ID = db.ID
		}
		user.Email = db.Email
		user.Firstname = db.Firstname
		user.Lastname = db.Lastname
		if !db.CreatedAt.IsZero() {
			user.CreatedAt = db.CreatedAt
		}
	}
	if fb := resp.FirebaseUser; fb != nil && user.Email == "" {
		user.Email = fb.Email
	}
	return user
}
