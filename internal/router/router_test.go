package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/figure-api/internal/auth"
	"github.com/iliyamo/figure-api/internal/datasource/memory"
	"github.com/iliyamo/figure-api/internal/events"
	"github.com/iliyamo/figure-api/internal/handler"
	"github.com/iliyamo/figure-api/internal/logging"
	"github.com/iliyamo/figure-api/internal/middleware"
	"github.com/iliyamo/figure-api/internal/model"
	"github.com/iliyamo/figure-api/internal/repository"
	"github.com/iliyamo/figure-api/internal/router"
)

const strongPassword = "Secret1!"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type app struct {
	e      *echo.Echo
	users  *repository.UserRepository
	hasher auth.Hasher
	events *recorder
}

// appOptions swaps parts of the stack for a single test.
type appOptions struct {
	limit       echo.MiddlewareFunc
	credentials repository.CredentialsStore
}

func newApp(t *testing.T) *app {
	t.Helper()
	return newAppWith(t, appOptions{})
}

func newAppWith(t *testing.T, opts appOptions) *app {
	t.Helper()
	db := memory.New()
	credentials := opts.credentials
	if credentials == nil {
		credentials = db.Credentials()
	}
	users := repository.NewUserRepository(db.Users(), credentials, db.Figures())
	figures := repository.NewFigureRepository(db.Figures(), db.Users())
	tokens := repository.NewTokenRepository(db.Tokens())

	access := auth.NewJWTService("test-access-secret", time.Hour)
	refresh := auth.NewRefreshTokenService("test-refresh-secret", "figure-api", time.Hour, tokens, users, access)
	hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}
	rec := &recorder{}
	log := logging.Discard()

	e := echo.New()
	e.HTTPErrorHandler = router.ErrorHandler(log)
	router.RegisterRoutes(e)
	router.Register(e, router.Routes(
		handler.NewUserHandler(users, hasher, access, refresh, rec, log),
		handler.NewFigureHandler(users, figures, rec, log),
	), access, opts.limit)

	return &app{e: e, users: users, hasher: hasher, events: rec}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) signUp(t *testing.T, email string) model.User {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users/signup", "", echo.Map{"email": email, "password": strongPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u
}

func (a *app) login(t *testing.T, email, password string) auth.TokenPair {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/users/login", "", echo.Map{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

// createAdmin stores an ADMIN directly; sign-up never grants that role.
func (a *app) createAdmin(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	u, err := a.users.Create(ctx, model.User{Email: email, Role: model.RoleAdmin})
	require.NoError(t, err)
	hash, err := a.hasher.HashPassword(strongPassword)
	require.NoError(t, err)
	_, err = a.users.UserCredentials(u.ID).Create(ctx, model.UserCredentials{Password: hash})
	require.NoError(t, err)
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func figureBody() echo.Map {
	return echo.Map{"symbol": "S", "shape": "circle", "color": "red", "measurement": 2.5}
}

func TestSignUp(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/users/signup", "", echo.Map{
		"email": "Alice@Example.com", "password": strongPassword, "firstName": "Alice", "role": "ADMIN",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	var u model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, "Alice", u.FirstName)

	creds, err := a.users.FindCredentials(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.NotEqual(t, strongPassword, creds.Password)

	dup := a.do(t, http.MethodPost, "/users/signup", "", echo.Map{"email": "alice@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "Email value is already taken", errorMessage(t, dup))

	assert.Equal(t, []string{events.UserSignedUp}, a.events.types())
}

func TestSignUp_Validation(t *testing.T) {
	a := newApp(t)
	cases := map[string]echo.Map{
		"no email":         {"password": strongPassword},
		"bad email":        {"email": "not-an-email", "password": strongPassword},
		"short password":   {"email": "a@x.com", "password": "Se1!"},
		"no upper":         {"email": "a@x.com", "password": "secret1!"},
		"no digit":         {"email": "a@x.com", "password": "Secrets!"},
		"no special":       {"email": "a@x.com", "password": "Secret12"},
		"bad special":      {"email": "a@x.com", "password": "Secret1#"},
		"short first name": {"email": "a@x.com", "password": strongPassword, "firstName": "A"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/users/signup", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := a.do(t, http.MethodPost, "/users/signup", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	a := newApp(t)
	a.signUp(t, "bob@example.com")

	wrong := a.do(t, http.MethodPost, "/users/login", "", echo.Map{"email": "bob@example.com", "password": "Wrong123!"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	unknown := a.do(t, http.MethodPost, "/users/login", "", echo.Map{"email": "nobody@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, errorMessage(t, wrong), errorMessage(t, unknown))

	short := a.do(t, http.MethodPost, "/users/login", "", echo.Map{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, short.Code)

	pair := a.login(t, "BOB@example.com", strongPassword)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestMe(t *testing.T) {
	a := newApp(t)
	u := a.signUp(t, "carol@example.com")
	pair := a.login(t, "carol@example.com", strongPassword)

	rec := a.do(t, http.MethodGet, "/users/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/users/me", "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/users/me", pair.RefreshToken, nil).Code)
}

func TestRefresh(t *testing.T) {
	a := newApp(t)
	u := a.signUp(t, "dave@example.com")
	pair := a.login(t, "dave@example.com", strongPassword)

	// The same refresh token keeps working; it is not rotated.
	for i := 0; i < 2; i++ {
		rec := a.do(t, http.MethodPost, "/users/refresh", "", echo.Map{"refreshToken": pair.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotContains(t, got, "refreshToken")
		require.NotEmpty(t, got["accessToken"])

		me := a.do(t, http.MethodGet, "/users/me", got["accessToken"], nil)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, u.ID, me.Body.String())
	}

	for name, body := range map[string]any{
		"empty token":   echo.Map{"refreshToken": ""},
		"missing token": echo.Map{},
		"garbage":       echo.Map{"refreshToken": "garbage"},
		"access token":  echo.Map{"refreshToken": pair.AccessToken},
	} {
		t.Run(name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/users/refresh", "", body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestFigures_TenantIsolation(t *testing.T) {
	a := newApp(t)
	u1 := a.signUp(t, "u1@example.com")
	u2 := a.signUp(t, "u2@example.com")
	t1 := a.login(t, "u1@example.com", strongPassword).AccessToken
	t2 := a.login(t, "u2@example.com", strongPassword).AccessToken

	body := figureBody()
	body["userId"] = u2.ID
	body["id"] = "chosen-by-client"
	body["tags"] = []string{"a", "b"}
	rec := a.do(t, http.MethodPost, "/figures", t1, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var f model.Figure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, u1.ID, f.UserID)
	assert.NotEqual(t, "chosen-by-client", f.ID)
	assert.Equal(t, []any{"a", "b"}, f.Extra["tags"])
	path := "/figures/" + f.ID

	// Owner sees it, the other tenant does not.
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path, t1, nil).Code)
	forbidden := a.do(t, http.MethodGet, path, t2, nil)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	var own1, own2 []model.Figure
	require.NoError(t, json.Unmarshal(a.do(t, http.MethodGet, "/figures", t1, nil).Body.Bytes(), &own1))
	require.NoError(t, json.Unmarshal(a.do(t, http.MethodGet, "/figures", t2, nil).Body.Bytes(), &own2))
	assert.Len(t, own1, 1)
	assert.Empty(t, own2)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPatch, path, t2, echo.Map{"color": "blue"}).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPut, path, t2, figureBody()).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, path, t2, nil).Code)

	// Not found wins over ownership.
	for _, tok := range []string{t1, t2} {
		rec := a.do(t, http.MethodGet, "/figures/does-not-exist", tok, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Figure not found", errorMessage(t, rec))
		assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/figures/does-not-exist", tok, nil).Code)
		assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPatch, "/figures/does-not-exist", tok, echo.Map{"color": "blue"}).Code)
		assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPut, "/figures/does-not-exist", tok, figureBody()).Code)
	}

	got := a.do(t, http.MethodGet, path, t1, nil)
	assert.Contains(t, got.Body.String(), `"color":"red"`)
}

func TestFigures_OwnerLifecycle(t *testing.T) {
	a := newApp(t)
	u := a.signUp(t, "owner@example.com")
	tok := a.login(t, "owner@example.com", strongPassword).AccessToken

	body := figureBody()
	body["note"] = "keep me"
	rec := a.do(t, http.MethodPost, "/figures", tok, body)
	require.Equal(t, http.StatusOK, rec.Code)
	var f model.Figure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	path := "/figures/" + f.ID

	get := func() model.Figure {
		rec := a.do(t, http.MethodGet, path, tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got model.Figure
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	patch := a.do(t, http.MethodPatch, path, tok, echo.Map{"color": "blue", "userId": "someone-else", "id": "x"})
	assert.Equal(t, http.StatusNoContent, patch.Code)
	got := get()
	assert.Equal(t, "blue", got.Color)
	assert.Equal(t, "S", got.Symbol)
	assert.Equal(t, "keep me", got.Extra["note"])
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, f.ID, got.ID)

	put := a.do(t, http.MethodPut, path, tok, echo.Map{"symbol": "T", "shape": "square", "color": "green", "measurement": 0})
	assert.Equal(t, http.StatusNoContent, put.Code)
	got = get()
	assert.Equal(t, "T", got.Symbol)
	assert.Equal(t, 0.0, got.Measurement)
	assert.Nil(t, got.Extra)
	assert.Equal(t, u.ID, got.UserID)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, path, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, tok, nil).Code)

	assert.Equal(t, []string{
		events.UserSignedUp, events.FigureCreated, events.FigureUpdated, events.FigureReplaced, events.FigureDeleted,
	}, a.events.types())
}

func TestFigures_Validation(t *testing.T) {
	a := newApp(t)
	a.signUp(t, "v@example.com")
	tok := a.login(t, "v@example.com", strongPassword).AccessToken

	missing := figureBody()
	delete(missing, "measurement")
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/figures", tok, missing).Code)

	blank := figureBody()
	blank["symbol"] = "  "
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/figures", tok, blank).Code)

	wrongType := figureBody()
	wrongType["measurement"] = "tall"
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/figures", tok, wrongType).Code)

	dotted := figureBody()
	dotted["a.b"] = 1
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/figures", tok, dotted).Code)

	rec := a.do(t, http.MethodPost, "/figures", tok, figureBody())
	require.Equal(t, http.StatusOK, rec.Code)
	var f model.Figure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPatch, "/figures/"+f.ID, tok, echo.Map{"$set": 1}).Code)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPatch, "/figures/"+f.ID, tok, echo.Map{"shape": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPut, "/figures/"+f.ID, tok, echo.Map{"symbol": "only"}).Code)
}

func TestFigures_RoleChecks(t *testing.T) {
	a := newApp(t)
	u := a.signUp(t, "user@example.com")
	a.createAdmin(t, "admin@example.com")
	userTok := a.login(t, "user@example.com", strongPassword).AccessToken
	adminTok := a.login(t, "admin@example.com", strongPassword).AccessToken

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/figures", userTok, figureBody()).Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/figures/all", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/figures/all", userTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/figures", adminTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPost, "/figures", adminTok, figureBody()).Code)

	rec := a.do(t, http.MethodGet, "/figures/all", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []struct {
		ID     string      `json:"id"`
		UserID string      `json:"userId"`
		User   *model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, u.ID, all[0].UserID)
	assert.Equal(t, u.ID, all[0].User.ID)
	assert.Equal(t, "user@example.com", all[0].User.Email)
	assert.Equal(t, model.RoleUser, all[0].User.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestUnknownRouteAndHealth(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorMessage(t, rec))

	health := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "ok", health.Body.String())
}

// failingCredentials cannot write credentials and never finds any.
type failingCredentials struct{}

func (failingCredentials) Create(context.Context, model.UserCredentials) error {
	return errors.New("write timeout")
}

func (failingCredentials) FindByUserID(context.Context, string) (model.UserCredentials, error) {
	return model.UserCredentials{}, repository.ErrNotFound
}

func TestSignUp_CredentialsWriteFailureKeepsUser(t *testing.T) {
	a := newAppWith(t, appOptions{credentials: failingCredentials{}})

	rec := a.do(t, http.MethodPost, "/users/signup", "", echo.Map{"email": "half@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rec))

	// The user row is not rolled back.
	u, err := a.users.FindByEmail(context.Background(), "half@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)

	login := a.do(t, http.MethodPost, "/users/login", "", echo.Map{"email": "half@example.com", "password": strongPassword})
	assert.Equal(t, http.StatusUnauthorized, login.Code)
	assert.Empty(t, a.events.types())
}

func TestRateLimiterRunsAfterAuthentication(t *testing.T) {
	var seen []string
	limit := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if p, ok := middleware.CurrentProfile(c); ok {
				seen = append(seen, p.ID)
			} else {
				seen = append(seen, "")
			}
			return next(c)
		}
	}
	a := newAppWith(t, appOptions{limit: limit})
	u := a.signUp(t, "limited@example.com")
	tok := a.login(t, "limited@example.com", strongPassword).AccessToken

	seen = nil
	require.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/figures", tok, nil).Code)
	assert.Equal(t, []string{u.ID}, seen)

	seen = nil
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/figures", "", nil).Code)
	assert.Empty(t, seen)
}
