package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	baseURL := ts.BaseURL()
	client := ts.Server.Client()

	post := func(t *testing.T, path string, body any) *http.Response {
		t.Helper()
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := client.Post(baseURL+path, "application/json", bytes.NewReader(raw))
		require.NoError(t, err)
		return resp
	}
	decode := func(t *testing.T, resp *http.Response) map[string]any {
		t.Helper()
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
		return out
	}

	t.Run("A_Status", func(t *testing.T) {
		resp, err := client.Get(baseURL + "/status")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode(t, resp)
		deps := body["dependencies"].(map[string]any)
		database := deps["database"].(map[string]any)
		assert.NotEmpty(t, database["version"])
		assert.Greater(t, database["max_connections"], float64(0))
		assert.GreaterOrEqual(t, database["opened_connections"], float64(1))
		_, err = time.Parse(time.RFC3339, body["updated_at"].(string))
		assert.NoError(t, err)
	})

	t.Run("B_Migrations", func(t *testing.T) {
		// Everything was applied at startup: listing is empty, running is a
		// 200 no-op.
		resp, err := client.Get(baseURL + "/migrations")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var pending []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
		assert.Empty(t, pending)

		runResp, err := client.Post(baseURL+"/migrations", "application/json", nil)
		require.NoError(t, err)
		defer runResp.Body.Close()
		assert.Equal(t, http.StatusOK, runResp.StatusCode)
	})

	t.Run("C_CreateUser", func(t *testing.T) {
		ts.Truncate(t)

		resp := post(t, "/users", map[string]string{
			"username": "daacarvalho",
			"email":    "danielfccarvalho@hotmail.com",
			"password": "senha123",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decode(t, resp)
		id, err := uuid.Parse(body["id"].(string))
		require.NoError(t, err)
		assert.EqualValues(t, 4, id.Version())
		assert.Equal(t, "daacarvalho", body["username"])

		_, err = time.Parse(time.RFC3339, body["created_at"].(string))
		assert.NoError(t, err)
		_, err = time.Parse(time.RFC3339, body["updated_at"].(string))
		assert.NoError(t, err)

		// The unique index enforces case-folded uniqueness even when racing
		// past the pre-check; the plain duplicate path reports it too.
		dup := post(t, "/users", map[string]string{
			"username": "DaaCarvalho",
			"email":    "other@hotmail.com",
			"password": "senha123",
		})
		assert.Equal(t, http.StatusBadRequest, dup.StatusCode)
		assert.Equal(t, "ValidationError", decode(t, dup)["name"])
	})

	t.Run("D_GetUserCaseMismatch", func(t *testing.T) {
		resp, err := client.Get(baseURL + "/users/DAACARVALHO")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "daacarvalho", decode(t, resp)["username"])
	})

	t.Run("E_SessionRoundTrip", func(t *testing.T) {
		login := post(t, "/sessions", map[string]string{
			"email":    "danielfccarvalho@hotmail.com",
			"password": "senha123",
		})
		require.Equal(t, http.StatusCreated, login.StatusCode)

		var cookie *http.Cookie
		for _, c := range login.Cookies() {
			if c.Name == "session_id" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, int(ts.TTL.Seconds()), cookie.MaxAge)

		loginBody := decode(t, login)
		createdExpiry, err := time.Parse(time.RFC3339, loginBody["expires_at"].(string))
		require.NoError(t, err)

		logoutReq, err := http.NewRequest(http.MethodDelete, baseURL+"/sessions", nil)
		require.NoError(t, err)
		logoutReq.AddCookie(cookie)
		logout, err := client.Do(logoutReq)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, logout.StatusCode)

		logoutBody := decode(t, logout)
		revokedExpiry, err := time.Parse(time.RFC3339, logoutBody["expires_at"].(string))
		require.NoError(t, err)
		assert.Equal(t, createdExpiry.Add(-365*24*time.Hour), revokedExpiry)

		meReq, err := http.NewRequest(http.MethodGet, baseURL+"/user", nil)
		require.NoError(t, err)
		meReq.AddCookie(cookie)
		me, err := client.Do(meReq)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, me.StatusCode)

		meBody := decode(t, me)
		assert.Equal(t, "UnauthorizedError", meBody["name"])
		assert.Equal(t, float64(401), meBody["statusCode"])
	})

	t.Run("F_PatchPassword", func(t *testing.T) {
		patchRaw, err := json.Marshal(map[string]string{"password": "senhaNova456"})
		require.NoError(t, err)
		patchReq, err := http.NewRequest(http.MethodPatch, baseURL+"/users/daacarvalho", bytes.NewReader(patchRaw))
		require.NoError(t, err)
		patchReq.Header.Set("Content-Type", "application/json")
		patchResp, err := client.Do(patchReq)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, patchResp.StatusCode)
		patchResp.Body.Close()

		oldLogin := post(t, "/sessions", map[string]string{
			"email":    "danielfccarvalho@hotmail.com",
			"password": "senha123",
		})
		assert.Equal(t, http.StatusUnauthorized, oldLogin.StatusCode)
		oldLogin.Body.Close()

		newLogin := post(t, "/sessions", map[string]string{
			"email":    "danielfccarvalho@hotmail.com",
			"password": "senhaNova456",
		})
		assert.Equal(t, http.StatusCreated, newLogin.StatusCode)
		newLogin.Body.Close()
	})
}
