package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/userbase/server/internal/clock"
	httprouter "github.com/userbase/server/internal/http"
	"github.com/userbase/server/internal/http/handlers"
	"github.com/userbase/server/internal/middleware"
	"github.com/userbase/server/internal/password"
	"github.com/userbase/server/internal/repo/repotest"
	"github.com/userbase/server/internal/session"
	"github.com/userbase/server/internal/user"
)

const testTTL = 720 * time.Hour

// newTestAPI wires the full router against in-memory repositories. The
// status and migrations handlers need a live database and are exercised by
// the integration suite instead.
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()

	clk := clock.New()
	hasher := password.NewHasher(bcrypt.MinCost)
	directory := user.NewDirectory(repotest.NewUserRepo(), hasher, clk)
	sessions := session.NewManager(repotest.NewSessionRepo(), clk, testTTL)

	router := httprouter.NewRouter(httprouter.Deps{
		Users:          handlers.NewUserHandler(directory),
		Sessions:       handlers.NewSessionHandler(directory, sessions, false),
		Status:         handlers.NewStatusHandler(nil, ""),
		Migrations:     handlers.NewMigrationHandler(nil),
		SessionManager: sessions,
		Directory:      directory,
		LoginLimiter:   middleware.NewRateLimiter(10*time.Minute, 100),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *nethttp.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := nethttp.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	return decoded
}

func createUser(t *testing.T, baseURL, username, email, pw string) map[string]any {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/v1/users", map[string]string{
		"username": username,
		"email":    email,
		"password": pw,
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	return decodeBody(t, resp)
}

func TestPostUsers(t *testing.T) {
	srv := newTestAPI(t)

	t.Run("with unique and valid data", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/users", map[string]string{
			"username": "daacarvalho",
			"email":    "danielfccarvalho@hotmail.com",
			"password": "senha123",
		})
		assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "daacarvalho", body["username"])
		assert.Equal(t, "danielfccarvalho@hotmail.com", body["email"])
		assert.NotEmpty(t, body["id"])
		assert.NotContains(t, body, "password", "the hash must be redacted")
		assert.NotContains(t, body, "password_hash")

		_, err := time.Parse(time.RFC3339, body["created_at"].(string))
		assert.NoError(t, err)
		_, err = time.Parse(time.RFC3339, body["updated_at"].(string))
		assert.NoError(t, err)
	})

	t.Run("with duplicated username", func(t *testing.T) {
		createUser(t, srv.URL, "maryjane", "maryjane@hotmail.com", "senha321")

		resp := postJSON(t, srv.URL+"/api/v1/users", map[string]string{
			"username": "Maryjane",
			"email":    "maryjane@gmail.com",
			"password": "senha321",
		})
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, map[string]any{
			"name":       "ValidationError",
			"message":    "The username provided is already in use.",
			"action":     "Use another username to perform this operation.",
			"statusCode": float64(400),
		}, body)
	})

	t.Run("with duplicated email", func(t *testing.T) {
		createUser(t, srv.URL, "johndoe", "johndoe@hotmail.com", "senha321")

		resp := postJSON(t, srv.URL+"/api/v1/users", map[string]string{
			"username": "johndoeduplicated",
			"email":    "Johndoe@hotmail.com",
			"password": "senha321",
		})
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "The email provided is already in use.", decodeBody(t, resp)["message"])
	})

	t.Run("with invalid body", func(t *testing.T) {
		resp, err := nethttp.Post(srv.URL+"/api/v1/users", "application/json",
			bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ValidationError", decodeBody(t, resp)["name"])
	})
}

func TestGetUserByUsername(t *testing.T) {
	srv := newTestAPI(t)
	createUser(t, srv.URL, "JaneDoeCase", "janedoecase@hotmail.com", "senha321")

	t.Run("case mismatch still resolves", func(t *testing.T) {
		resp, err := nethttp.Get(srv.URL + "/api/v1/users/janedoecase")
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
		assert.Equal(t, "JaneDoeCase", decodeBody(t, resp)["username"])
	})

	t.Run("nonexistent username", func(t *testing.T) {
		resp, err := nethttp.Get(srv.URL + "/api/v1/users/usuarioInexistente")
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "NotFoundError", body["name"])
		assert.Equal(t, "The username provided was not found in the system.", body["message"])
	})
}

func patchJSON(t *testing.T, url string, body any) *nethttp.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := nethttp.NewRequest(nethttp.MethodPatch, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestPatchUser(t *testing.T) {
	srv := newTestAPI(t)

	t.Run("duplicated username", func(t *testing.T) {
		createUser(t, srv.URL, "newuserapplication", "first@example.com", "senha123")
		createUser(t, srv.URL, "user2", "second@example.com", "senha123")

		resp := patchJSON(t, srv.URL+"/api/v1/users/user2",
			map[string]string{"username": "newuserapplication"})
		assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "ValidationError", body["name"])
		assert.Contains(t, body["message"], "username")
	})

	t.Run("nonexistent username", func(t *testing.T) {
		resp := patchJSON(t, srv.URL+"/api/v1/users/usuarioInexistente",
			map[string]string{"email": "x@example.com"})
		assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	})

	t.Run("unique username", func(t *testing.T) {
		createUser(t, srv.URL, "renameme", "renameme@example.com", "senha123")

		resp := patchJSON(t, srv.URL+"/api/v1/users/renameme",
			map[string]string{"username": "uniqueUser2"})
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
		assert.Equal(t, "uniqueUser2", decodeBody(t, resp)["username"])
	})

	t.Run("password change takes effect on login", func(t *testing.T) {
		createUser(t, srv.URL, "relogin", "relogin@example.com", "newPassword1")

		resp := patchJSON(t, srv.URL+"/api/v1/users/relogin",
			map[string]string{"password": "newPassword2"})
		require.Equal(t, nethttp.StatusOK, resp.StatusCode)
		resp.Body.Close()

		oldLogin := postJSON(t, srv.URL+"/api/v1/sessions",
			map[string]string{"email": "relogin@example.com", "password": "newPassword1"})
		assert.Equal(t, nethttp.StatusUnauthorized, oldLogin.StatusCode)
		oldLogin.Body.Close()

		newLogin := postJSON(t, srv.URL+"/api/v1/sessions",
			map[string]string{"email": "relogin@example.com", "password": "newPassword2"})
		assert.Equal(t, nethttp.StatusCreated, newLogin.StatusCode)
		newLogin.Body.Close()
	})
}

func sessionCookie(resp *nethttp.Response) *nethttp.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestAPI(t)
	createUser(t, srv.URL, "sessionowner", "sessionowner@example.com", "senha123")

	t.Run("login with wrong credentials", func(t *testing.T) {
		wrongPassword := postJSON(t, srv.URL+"/api/v1/sessions",
			map[string]string{"email": "sessionowner@example.com", "password": "senhaErrada"})
		unknownEmail := postJSON(t, srv.URL+"/api/v1/sessions",
			map[string]string{"email": "nobody@example.com", "password": "senha123"})

		assert.Equal(t, nethttp.StatusUnauthorized, wrongPassword.StatusCode)
		assert.Equal(t, nethttp.StatusUnauthorized, unknownEmail.StatusCode)
		assert.Equal(t, decodeBody(t, wrongPassword), decodeBody(t, unknownEmail),
			"wrong password and unknown email must be indistinguishable")
	})

	t.Run("login, authenticate, revoke", func(t *testing.T) {
		login := postJSON(t, srv.URL+"/api/v1/sessions",
			map[string]string{"email": "sessionowner@example.com", "password": "senha123"})
		require.Equal(t, nethttp.StatusCreated, login.StatusCode)

		cookie := sessionCookie(login)
		require.NotNil(t, cookie, "login must set the session_id cookie")
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, int(testTTL.Seconds()), cookie.MaxAge)

		body := decodeBody(t, login)
		token := body["token"].(string)
		assert.Equal(t, cookie.Value, token)
		assert.Len(t, token, 96)

		createdExpiry, err := time.Parse(time.RFC3339, body["expires_at"].(string))
		require.NoError(t, err)

		// The cookie authenticates GET /api/v1/user.
		me, err := nethttp.DefaultClient.Do(withCookie(t, srv.URL+"/api/v1/user", cookie))
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, me.StatusCode)
		assert.Equal(t, "sessionowner", decodeBody(t, me)["username"])

		// Revoke.
		logoutReq, err := nethttp.NewRequest(nethttp.MethodDelete, srv.URL+"/api/v1/sessions", nil)
		require.NoError(t, err)
		logoutReq.AddCookie(cookie)
		logout, err := nethttp.DefaultClient.Do(logoutReq)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, logout.StatusCode)

		dropped := sessionCookie(logout)
		require.NotNil(t, dropped)
		assert.Equal(t, "invalid", dropped.Value)
		assert.Less(t, dropped.MaxAge, 0, "client must discard the cookie immediately")

		logoutBody := decodeBody(t, logout)
		revokedExpiry, err := time.Parse(time.RFC3339, logoutBody["expires_at"].(string))
		require.NoError(t, err)
		assert.True(t, revokedExpiry.Before(createdExpiry),
			"revocation must back-date expires_at")
		assert.Equal(t, createdExpiry.Add(-365*24*time.Hour), revokedExpiry)

		// The token no longer authenticates anything.
		meAfter, err := nethttp.DefaultClient.Do(withCookie(t, srv.URL+"/api/v1/user", cookie))
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusUnauthorized, meAfter.StatusCode)

		afterBody := decodeBody(t, meAfter)
		assert.Equal(t, "UnauthorizedError", afterBody["name"])
		assert.Equal(t, "User does not have an active session.", afterBody["message"])
	})

	t.Run("revoke without a cookie", func(t *testing.T) {
		req, err := nethttp.NewRequest(nethttp.MethodDelete, srv.URL+"/api/v1/sessions", nil)
		require.NoError(t, err)
		resp, err := nethttp.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("revoke with a nonexistent token", func(t *testing.T) {
		req, err := nethttp.NewRequest(nethttp.MethodDelete, srv.URL+"/api/v1/sessions", nil)
		require.NoError(t, err)
		req.AddCookie(&nethttp.Cookie{Name: "session_id", Value: "487129384y283y49823498jJASD829738AJSDN"})
		resp, err := nethttp.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, map[string]any{
			"name":       "UnauthorizedError",
			"message":    "User does not have an active session.",
			"action":     "Check that this user is logged in and try again.",
			"statusCode": float64(401),
		}, body)
	})
}

func withCookie(t *testing.T, url string, cookie *nethttp.Cookie) *nethttp.Request {
	t.Helper()
	req, err := nethttp.NewRequest(nethttp.MethodGet, url, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	return req
}

func TestCurrentUserWithoutSession(t *testing.T) {
	srv := newTestAPI(t)

	resp, err := nethttp.Get(srv.URL + "/api/v1/user")
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UnauthorizedError", decodeBody(t, resp)["name"])
}
