package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdeck/internal/storage"
)

// fakeUserStore は UserStore のインメモリ実装です。
type fakeUserStore struct {
	users  map[string]*storage.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*storage.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, passwordHash string) (*storage.User, error) {
	if _, exists := f.users[email]; exists {
		return nil, storage.ErrDuplicateEmail
	}
	f.nextID++
	user := &storage.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	f.users[email] = user
	return user, nil
}

func (f *fakeUserStore) UserByEmail(_ context.Context, email string) (*storage.User, error) {
	user, exists := f.users[email]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) UserByID(_ context.Context, id int64) (*storage.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUserStore) DeleteUser(_ context.Context, id int64) error {
	for email, user := range f.users {
		if user.ID == id {
			delete(f.users, email)
			return nil
		}
	}
	return storage.ErrNotFound
}

func newTestManager(store UserStore) *Manager {
	return NewManager(store, NewHasher(4), NewTokenService("test-secret", time.Hour), 6)
}

func newAuthRouter(m *Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/auth/register", m.Register)
	router.POST("/auth/login", m.Login)
	router.GET("/auth/profile", m.RequireAuth(), m.Profile)
	router.DELETE("/auth/profile", m.RequireAuth(), m.DeleteAccount)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestRegisterSuccess(t *testing.T) {
	router := newAuthRouter(newTestManager(newFakeUserStore()))

	rec := postJSON(t, router, "/auth/register", gin.H{
		"email":    "User@Example.com",
		"password": "passw0rd",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Fatalf("status field = %q", env.Status)
	}

	var data struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.User.ID == 0 {
		t.Fatal("expected an assigned user id")
	}
	// emailは小文字へ正規化される
	if data.User.Email != "user@example.com" {
		t.Fatalf("email = %q, want user@example.com", data.User.Email)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := newAuthRouter(newTestManager(newFakeUserStore()))

	first := postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"})
	if first.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", first.Code)
	}

	// 正規化後に同じemailになる入力も重複扱い
	second := postJSON(t, router, "/auth/register", gin.H{"email": " A@Example.COM ", "password": "passw0rd"})
	if second.Code != http.StatusBadRequest {
		t.Fatalf("second register status = %d body=%s", second.Code, second.Body.String())
	}
	env := decodeEnvelope(t, second)
	if env.Message != "User already exists" {
		t.Fatalf("message = %q", env.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	router := newAuthRouter(newTestManager(newFakeUserStore()))

	cases := []struct {
		name    string
		payload gin.H
	}{
		{"missing password", gin.H{"email": "a@example.com"}},
		{"bad email", gin.H{"email": "not-an-email", "password": "passw0rd"}},
		{"too short", gin.H{"email": "a@example.com", "password": "a1"}},
		{"no digit", gin.H{"email": "a@example.com", "password": "password"}},
		{"no letter", gin.H{"email": "a@example.com", "password": "12345678"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, router, "/auth/register", tc.payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterThenLogin(t *testing.T) {
	manager := newTestManager(newFakeUserStore())
	router := newAuthRouter(manager)

	if rec := postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec := postJSON(t, router, "/auth/login", gin.H{"email": "a@example.com", "password": "passw0rd"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var data struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("expected a token")
	}

	// 返ってきたトークンのクレームが登録した本人と一致する
	claims, err := manager.tokens.Verify(data.Token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != data.User.ID || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v, want id=%d email=a@example.com", claims, data.User.ID)
	}
}

func TestLoginEnumerationResistance(t *testing.T) {
	router := newAuthRouter(newTestManager(newFakeUserStore()))

	if rec := postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	wrongPassword := postJSON(t, router, "/auth/login", gin.H{"email": "a@example.com", "password": "wrong0pass"})
	noSuchUser := postJSON(t, router, "/auth/login", gin.H{"email": "b@example.com", "password": "passw0rd"})

	if wrongPassword.Code != http.StatusBadRequest || noSuchUser.Code != http.StatusBadRequest {
		t.Fatalf("statuses = %d, %d, want 400, 400", wrongPassword.Code, noSuchUser.Code)
	}
	// 2つの失敗レスポンスは完全に同一でなければならない
	if wrongPassword.Body.String() != noSuchUser.Body.String() {
		t.Fatalf("responses differ: %q vs %q", wrongPassword.Body.String(), noSuchUser.Body.String())
	}
}

func TestProfile(t *testing.T) {
	manager := newTestManager(newFakeUserStore())
	router := newAuthRouter(manager)

	postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"})
	login := decodeEnvelope(t, postJSON(t, router, "/auth/login", gin.H{"email": "a@example.com", "password": "passw0rd"}))
	var loginData struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(login.Data, &loginData); err != nil {
		t.Fatalf("failed to decode login data: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+loginData.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var profile struct {
		ID        int64     `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.Email != "a@example.com" || profile.CreatedAt.IsZero() {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("profile leaks password material: %s", rec.Body.String())
	}
}

func TestProfileUserDeletedAfterIssuance(t *testing.T) {
	store := newFakeUserStore()
	manager := newTestManager(store)
	router := newAuthRouter(manager)

	postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"})
	token, err := manager.tokens.Issue(1, "a@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// トークン発行後にアカウントが消えたケース
	if err := store.DeleteUser(context.Background(), 1); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDeleteAccount(t *testing.T) {
	store := newFakeUserStore()
	manager := newTestManager(store)
	router := newAuthRouter(manager)

	postJSON(t, router, "/auth/register", gin.H{"email": "a@example.com", "password": "passw0rd"})
	token, err := manager.tokens.Issue(1, "a@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if _, err := store.UserByEmail(context.Background(), "a@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("user still present after delete, err=%v", err)
	}
}
