// Package apitest provides an in-memory stand-in for the remote to-do API.
// It implements the auth, profile, and task endpoints the client consumes,
// including single-use refresh-token rotation, so tests can exercise the full
// session lifecycle without a real backend.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jrsteele09/go-todo-client/tasks"
)

// Account is a registered user on the fake server.
type Account struct {
	ID        string
	Email     string
	Password  string
	Username  string
	Firstname string
	Lastname  string
	FCMToken  string
	CreatedAt time.Time
}

// Server is the fake collaborator. Failure toggles and call counters let
// tests force specific error paths and assert on wire activity.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	tokenCounter  int
	accounts      map[string]*Account // keyed by email
	accessTokens  map[string]string   // access token -> account email
	refreshTokens map[string]string   // refresh token -> account email
	taskCounter   int
	taskList      map[string]*tasks.Task

	SignInCalls  int
	RefreshCalls int
	LogoutCalls  int
	ProfileCalls int

	FailRefresh    bool // refresh endpoint returns 500
	FailLogout     bool // logout endpoint returns 500
	FailProfile    bool // profile endpoint returns 500
	FailTaskWrites bool // task create/update/delete return 500

	// RefreshDelay holds the refresh endpoint open, letting tests overlap
	// concurrent refresh attempts. Set before issuing requests.
	RefreshDelay time.Duration
}

// NewServer starts a fake API server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		accounts:      make(map[string]*Account),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		taskList:      make(map[string]*tasks.Task),
	}

	r := chi.NewRouter()
	r.Post("/auth/signin", s.handleSignIn)
	r.Post("/auth/signup", s.handleSignUp)
	r.Post("/auth/google-login", s.handleGoogleLogin)
	r.Post("/auth/refresh-token", s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/change-password", s.handleChangePassword)
		r.Patch("/auth/update-fcm-token", s.handleUpdateFCMToken)
		r.Get("/users/me", s.handleProfile)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Patch("/tasks/{id}", s.handleUpdateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AddAccount registers a user and returns its server-assigned ID.
func (s *Server) AddAccount(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := &Account{
		ID:        fmt.Sprintf("user-%d", len(s.accounts)+1),
		Email:     email,
		Password:  password,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	s.accounts[email] = account
	return account.ID
}

// Account returns the stored account for email, or nil.
func (s *Server) Account(email string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[email]; ok {
		copied := *account
		return &copied
	}
	return nil
}

// ExpireAccessTokens invalidates every issued access token, forcing the next
// authenticated request to fail with 401.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = make(map[string]string)
}

// SeedToken installs a token pair for the given account without a sign-in.
func (s *Server) SeedToken(email, accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accessToken != "" {
		s.accessTokens[accessToken] = email
	}
	if refreshToken != "" {
		s.refreshTokens[refreshToken] = email
	}
}

// SeedTask installs a task directly into the server's state.
func (s *Server) SeedTask(task tasks.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := task
	s.taskList[task.ID] = &copied
}

// TaskCount returns the number of tasks the server holds.
func (s *Server) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.taskList)
}

func (s *Server) issueTokens(email string) (accessToken, refreshToken string) {
	s.tokenCounter++
	accessToken = fmt.Sprintf("access-%d", s.tokenCounter)
	refreshToken = fmt.Sprintf("refresh-%d", s.tokenCounter)
	s.accessTokens[accessToken] = email
	s.refreshTokens[refreshToken] = email
	return accessToken, refreshToken
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, ok := s.accessTokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		r.Header.Set("X-Test-Account", email)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.SignInCalls++
	account, ok := s.accounts[request.Email]
	if !ok || account.Password != request.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	accessToken, refreshToken := s.issueTokens(account.Email)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Username  string `json:"username"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[request.Email]; exists {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	account := &Account{
		ID:        fmt.Sprintf("user-%d", len(s.accounts)+1),
		Email:     request.Email,
		Password:  request.Password,
		Username:  request.Username,
		Firstname: request.Firstname,
		Lastname:  request.Lastname,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[request.Email] = account
	accessToken, refreshToken := s.issueTokens(account.Email)
	writeJSON(w, http.StatusCreated, map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

// handleGoogleLogin accepts any idToken beginning with "google:"; the rest of
// the token names the account email.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		IDToken string `json:"idToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	email, ok := strings.CutPrefix(request.IDToken, "google:")
	if !ok || email == "" {
		writeError(w, http.StatusUnauthorized, "invalid identity token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	account, exists := s.accounts[email]
	if !exists {
		account = &Account{
			ID:        fmt.Sprintf("user-%d", len(s.accounts)+1),
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		s.accounts[email] = account
	}
	accessToken, refreshToken := s.issueTokens(account.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"userdb": map[string]any{
			"id":        account.ID,
			"email":     account.Email,
			"firstname": account.Firstname,
			"lastname":  account.Lastname,
			"createdAt": account.CreatedAt.Format(time.RFC3339),
		},
		"firebaseUser": map[string]any{
			"uid":   "firebase-" + account.ID,
			"email": account.Email,
		},
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var request struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	if s.RefreshDelay > 0 {
		time.Sleep(s.RefreshDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefreshCalls++
	if s.FailRefresh {
		writeError(w, http.StatusInternalServerError, "refresh unavailable")
		return
	}
	email, ok := s.refreshTokens[request.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// Refresh tokens are single-use: rotation invalidates the presented one.
	delete(s.refreshTokens, request.RefreshToken)
	accessToken, refreshToken := s.issueTokens(email)
	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LogoutCalls++
	if s.FailLogout {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var request struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	s.mu.Lock()
	defer s.mu.Unlock()
	account := s.accounts[r.Header.Get("X-Test-Account")]
	if account == nil || account.Password != request.OldPassword {
		writeError(w, http.StatusBadRequest, "old password is incorrect")
		return
	}
	account.Password = request.NewPassword
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FCMToken string `json:"fcmToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&request)

	s.mu.Lock()
	defer s.mu.Unlock()
	if account := s.accounts[r.Header.Get("X-Test-Account")]; account != nil {
		account.FCMToken = request.FCMToken
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProfileCalls++
	if s.FailProfile {
		writeError(w, http.StatusInternalServerError, "profile unavailable")
		return
	}
	account := s.accounts[r.Header.Get("X-Test-Account")]
	if account == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        account.ID,
		"email":     account.Email,
		"username":  account.Username,
		"createdAt": account.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]tasks.Task, 0, len(s.taskList))
	for _, task := range s.taskList {
		list = append(list, *task)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var draft tasks.Draft
	_ = json.NewDecoder(r.Body).Decode(&draft)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTaskWrites {
		writeError(w, http.StatusInternalServerError, "task write failed")
		return
	}
	account := s.accounts[r.Header.Get("X-Test-Account")]
	s.taskCounter++
	task := &tasks.Task{
		ID:          fmt.Sprintf("task-%d", s.taskCounter),
		Title:       draft.Title,
		Description: draft.Description,
		Done:        draft.Done,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		Reminder:    draft.Reminder,
		RepeatType:  draft.RepeatType,
	}
	if account != nil {
		task.UserID = account.ID
	}
	s.taskList[task.ID] = task
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.taskList[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch tasks.Patch
	_ = json.NewDecoder(r.Body).Decode(&patch)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTaskWrites {
		writeError(w, http.StatusInternalServerError, "task write failed")
		return
	}
	task, ok := s.taskList[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Done != nil {
		task.Done = *patch.Done
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Reminder != nil {
		task.Reminder = patch.Reminder
	}
	if patch.RepeatType != nil {
		task.RepeatType = *patch.RepeatType
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailTaskWrites {
		writeError(w, http.StatusInternalServerError, "task write failed")
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := s.taskList[id]; !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	delete(s.taskList, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
