package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/todo-task-api/internal/config"
	"github.com/iliyamo/todo-task-api/internal/model"
	"github.com/iliyamo/todo-task-api/internal/repository"
	"github.com/iliyamo/todo-task-api/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    "testsecret",
		AccessTTLMin: 30,
		BcryptCost:   bcrypt.MinCost,
	}
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users  map[uint64]model.User
	nextID uint64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uint64]model.User{}, nextID: 1}
}

func (f *fakeUserStore) add(u model.User) model.User {
	if u.ID == 0 {
		u.ID = f.nextID
	}
	if u.ID >= f.nextID {
		f.nextID = u.ID + 1
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	for _, e := range f.users {
		if e.Email == u.Email {
			return repository.ErrEmailExists
		}
		if e.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	u.ID = f.nextID
	u.IsActive = true
	f.nextID++
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByLogin(_ context.Context, login string) (model.User, error) {
	for _, u := range f.users {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) EmailTaken(_ context.Context, email string, excludeID uint64) (bool, error) {
	for _, u := range f.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UsernameTaken(_ context.Context, username string, excludeID uint64) (bool, error) {
	for _, u := range f.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id uint64, upd repository.ProfileUpdate) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Firstname != nil {
		u.Firstname = *upd.Firstname
	}
	if upd.Lastname != nil {
		u.Lastname = *upd.Lastname
	}
	if upd.Contact != nil {
		u.Contact = *upd.Contact
	}
	if upd.Position != nil {
		u.Position = *upd.Position
	}
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) SetCalendarToken(_ context.Context, id uint64, token *string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.CalendarToken = token
	f.users[id] = u
	return nil
}

// ----- request helpers -----

func jsonCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func formCtx(method, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withUser(c echo.Context, u model.User) {
	c.Set("user", u)
}

func errorMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func seedUser(t *testing.T, store *fakeUserStore, username, email, password string) model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return store.add(model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	})
}

// ----- tests -----

func TestRegisterSuccess(t *testing.T) {
	store := newFakeUserStore()
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPost, "/auth/register",
		`{"email":"Alice@Example.com","username":"alice","password":"secret123","firstname":"Alice"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice@example.com", resp["email"], "email is normalized to lower case")
	assert.Equal(t, "alice", resp["username"])
	assert.NotContains(t, rec.Body.String(), "secret123", "password must never appear in a response")
	assert.NotContains(t, resp, "password_hash")
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"email":"a@b.com"}`, "email, username and password are required"},
		{"bad email", `{"email":"not-an-email","username":"alice","password":"secret123"}`, "invalid email address"},
		{"short password", `{"email":"a@b.com","username":"alice","password":"12345"}`, "password must be at least 6 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(testConfig(), newFakeUserStore())
			c, rec := jsonCtx(http.MethodPost, "/auth/register", tc.body)
			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, errorMsg(t, rec))
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPost, "/auth/register",
		`{"email":"new@example.com","username":"alice","password":"secret123"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already registered", errorMsg(t, rec))

	c, rec = jsonCtx(http.MethodPost, "/auth/register",
		`{"email":"alice@example.com","username":"bob","password":"secret123"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already registered", errorMsg(t, rec))
}

func TestLoginSuccess(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	for _, login := range []string{"alice", "alice@example.com"} {
		c, rec := formCtx(http.MethodPost, "/auth/login",
			url.Values{"username": {login}, "password": {"secret123"}})
		require.NoError(t, h.Login(c))
		require.Equal(t, http.StatusOK, rec.Code, "login=%s", login)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "bearer", resp["token_type"])

		sub, err := utils.VerifyAccessToken("testsecret", resp["access_token"])
		require.NoError(t, err)
		assert.Equal(t, "alice", sub)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := newFakeUserStore()
	seedUser(t, store, "alice", "alice@example.com", "secret123")
	inactive := seedUser(t, store, "bob", "bob@example.com", "secret123")
	inactive.IsActive = false
	store.add(inactive)
	h := NewAuthHandler(testConfig(), store)

	cases := []struct {
		name     string
		login    string
		password string
	}{
		{"wrong password", "alice", "wrongpass"},
		{"unknown user", "nobody", "secret123"},
		{"inactive user", "bob", "secret123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := formCtx(http.MethodPost, "/auth/login",
				url.Values{"username": {tc.login}, "password": {tc.password}})
			require.NoError(t, h.Login(c))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "incorrect username or password", errorMsg(t, rec))
		})
	}
}

func TestMe(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodGet, "/auth/me", "")
	withUser(c, u)
	require.NoError(t, h.Me(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["username"])
}

func TestUpdateMePartial(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPatch, "/auth/me", `{"firstname":"Alice","position":"engineer"}`)
	withUser(c, u)
	require.NoError(t, h.UpdateMe(c))

	require.Equal(t, http.StatusOK, rec.Code)
	got := store.users[u.ID]
	assert.Equal(t, "Alice", got.Firstname)
	assert.Equal(t, "engineer", got.Position)
	assert.Equal(t, "alice", got.Username, "untouched fields keep their value")
}

func TestUpdateMeKeepOwnEmailIsNotAConflict(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPatch, "/auth/me", `{"email":"alice@example.com"}`)
	withUser(c, u)
	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMeConflict(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	seedUser(t, store, "bob", "bob@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPatch, "/auth/me", `{"username":"bob"}`)
	withUser(c, u)
	require.NoError(t, h.UpdateMe(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already registered", errorMsg(t, rec))
}

func TestChangePassword(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPost, "/auth/change-password",
		`{"current_password":"secret123","new_password":"newsecret"}`)
	withUser(c, u)
	require.NoError(t, h.ChangePassword(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, utils.VerifyPassword(store.users[u.ID].PasswordHash, "newsecret"))
	assert.False(t, utils.VerifyPassword(store.users[u.ID].PasswordHash, "secret123"))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPost, "/auth/change-password",
		`{"current_password":"wrongpass","new_password":"newsecret"}`)
	withUser(c, u)
	require.NoError(t, h.ChangePassword(c))

	// Token possession alone is not enough; the mismatch looks like any
	// other authorization failure.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorMsg(t, rec))
	assert.True(t, utils.VerifyPassword(store.users[u.ID].PasswordHash, "secret123"), "password unchanged")
}

func TestChangePasswordTooShort(t *testing.T) {
	store := newFakeUserStore()
	u := seedUser(t, store, "alice", "alice@example.com", "secret123")
	h := NewAuthHandler(testConfig(), store)

	c, rec := jsonCtx(http.MethodPost, "/auth/change-password",
		`{"current_password":"secret123","new_password":"short"}`)
	withUser(c, u)
	require.NoError(t, h.ChangePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
