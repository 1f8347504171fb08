package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memQuerier keeps users in memory and returns sql.ErrNoRows like the
// generated queries do.
type memQuerier struct {
	mu    sync.Mutex
	users map[uuid.UUID]User
}

func newMemQuerier() *memQuerier {
	return &memQuerier{users: make(map[uuid.UUID]User)}
}

func (q *memQuerier) CreateUser(_ context.Context, arg CreateUserParams) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := User{ID: uuid.New(), Username: arg.Username, Email: arg.Email, Phone: arg.Phone, Address: arg.Address, Balance: arg.Balance, CreatedAt: time.Now()}
	q.users[u.ID] = u
	return u, nil
}

func (q *memQuerier) find(match func(User) bool) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, u := range q.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, sql.ErrNoRows
}

func (q *memQuerier) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	return q.find(func(u User) bool { return u.ID == id })
}

func (q *memQuerier) GetUserByEmail(_ context.Context, email string) (User, error) {
	return q.find(func(u User) bool { return u.Email == email })
}

func (q *memQuerier) GetUserByUsername(_ context.Context, username string) (User, error) {
	return q.find(func(u User) bool { return u.Username == username })
}

func (q *memQuerier) UpdateProfile(_ context.Context, arg UpdateProfileParams) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.users[arg.ID]
	if !ok {
		return User{}, sql.ErrNoRows
	}
	u.Username, u.Phone, u.Address = arg.Username, arg.Phone, arg.Address
	q.users[arg.ID] = u
	return u, nil
}

func (q *memQuerier) Deposit(_ context.Context, email string, amount decimal.Decimal) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, u := range q.users {
		if u.Email == email {
			u.Balance = u.Balance.Add(amount)
			q.users[id] = u
			return u, nil
		}
	}
	return User{}, sql.ErrNoRows
}

func (q *memQuerier) DeleteUser(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.users, id)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := NewService(NewApp(NewRepository(newMemQuerier())))
	r := chi.NewRouter()
	r.Mount("/api/auth/user", svc.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestGetUserByEmailProfile(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/auth/user/", `{"username":"alice","email":"alice@example.com","phone":"555-0100","address":"1 Main St","balance":1000}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/auth/user/user/alice@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "555-0100", user["phone"])
	assert.Equal(t, "1 Main St", user["address"])
}

func TestGetUserByEmailNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/auth/user/user/ghost@example.com", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["kind"])
}

func TestCreateUserRejectsDuplicatesAndBadInput(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/auth/user/", `{"username":"bob","email":"bob@example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/user/", `{"username":"bob","email":"other@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "already exists")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/auth/user/", `{"username":"","email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDepositAndUpdateProfile(t *testing.T) {
	srv := newTestServer(t)

	_, body := do(t, http.MethodPost, srv.URL+"/api/auth/user/", `{"username":"carol","email":"carol@example.com","balance":10}`)
	id := body["user"].(map[string]any)["id"].(string)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/auth/user/user/carol@example.com/deposit", `{"amount":15.5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 25.5, body["user"].(map[string]any)["balance"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/auth/user/user/carol@example.com/deposit", `{"amount":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPatch, srv.URL+"/api/auth/user/"+id, `{"username":"caroline","address":"2 Side St"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "caroline", body["user"].(map[string]any)["username"])
}
