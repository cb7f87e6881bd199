//go:build integration_test || all_tests

package integration_testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/becomepro/backend/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Server(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()
	require.NotNil(t, suite.server)

	// give the listeners a moment
	time.Sleep(500 * time.Millisecond)

	t.Run("register and login", func(t *testing.T) {
		token, user := registerAndLogin(t, "mia", "mia@example.com", "s3cret-pass")
		assert.NotEmpty(t, token)
		assert.Equal(t, "mia", user["username"])

		// profile readable with the token
		profileResp := doRequest(t, "GET", "/api/profile", "", token)
		defer profileResp.Body.Close()
		assert.Equal(t, http.StatusOK, profileResp.StatusCode)
	})

	t.Run("workout flow with ownership isolation", func(t *testing.T) {
		tokenA, _ := registerAndLogin(t, "userA", "a@example.com", "password-a")
		tokenB, _ := registerAndLogin(t, "userB", "b@example.com", "password-b")

		// exercises are seeded directly, the taxonomy write API needs a capability
		var exerciseID int
		err := suite.DB.QueryRow(
			`INSERT INTO exercise (name) VALUES ('Squat') RETURNING id`,
		).Scan(&exerciseID)
		require.NoError(t, err)

		// user A starts a session and logs a set
		sessionID := postAndGetID(t, "/api/trainings/sessions",
			fmt.Sprintf(`{"startedAt":%q}`, time.Now().Format(time.RFC3339)),
			tokenA, "session")
		logID := postAndGetID(t, fmt.Sprintf("/api/trainings/sessions/%d/logs", sessionID),
			fmt.Sprintf(`{"exerciseId":%d}`, exerciseID),
			tokenA, "log")
		postAndGetID(t, fmt.Sprintf("/api/trainings/logs/%d/sets", logID),
			`{"setOrder":1,"reps":10,"weightKg":50}`,
			tokenA, "set")

		// user B sees a 404 on user A's session
		resp := doRequest(t, "GET", fmt.Sprintf("/api/trainings/sessions/%d", sessionID), "", tokenB)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		// user B cannot attach a log to it either, and no row is left behind
		resp = doRequest(t, "POST", fmt.Sprintf("/api/trainings/sessions/%d/logs", sessionID),
			fmt.Sprintf(`{"exerciseId":%d}`, exerciseID), tokenB)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var logCount int
		err = suite.DB.QueryRow(
			`SELECT COUNT(*) FROM exercise_log WHERE session_id = $1`, sessionID,
		).Scan(&logCount)
		require.NoError(t, err)
		assert.Equal(t, 1, logCount)

		// user A sees their max weight
		resp = doRequest(t, "GET",
			fmt.Sprintf("/api/trainings/progress/max?exerciseId=%d", exerciseID), "", tokenA)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var maxResp struct {
			Success   bool     `json:"success"`
			MaxWeight *float64 `json:"maxWeight"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&maxResp))
		require.NotNil(t, maxResp.MaxWeight)
		assert.Equal(t, float64(50), *maxResp.MaxWeight)
	})

	t.Run("articles are public to read", func(t *testing.T) {
		resp := doRequest(t, "GET", "/api/articles", "", "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// but not to write without a session
		resp = doRequest(t, "POST", "/api/articles", `{"title":"t","content":"c"}`, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func registerAndLogin(t *testing.T, username, email, password string) (string, map[string]any) {
	t.Helper()

	registerBody := fmt.Sprintf(
		`{"username":%q,"email":%q,"password":%q}`,
		username, email, password,
	)
	resp := doRequest(t, "POST", "/api/register", registerBody, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loginBody := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	resp = doRequest(t, "POST", "/api/login", loginBody, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Success bool           `json:"success"`
		Token   string         `json:"token"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.True(t, loginResp.Success)
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token, loginResp.User
}

func doRequest(t *testing.T, method, path, body, token string) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != "" {
		reqBody = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	if token != "" {
		req.Header.Set(auth.AuthTokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func postAndGetID(t *testing.T, path, body, token, entityKey string) int {
	t.Helper()

	resp := doRequest(t, "POST", path, body, token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var payload map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	var entity struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload[entityKey], &entity))
	require.NotZero(t, entity.ID)
	return entity.ID
}
