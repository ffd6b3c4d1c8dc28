package http_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundpulse/internal/testsupport"
)

const testPassword = "testpassword123"

func doRequest(t *testing.T, app *fiber.App, method, target, session, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set("Cookie", fmt.Sprintf("%s=%s", testsupport.SessionCookieName, session))
	}

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestStatsEndpointsRequireAuthentication(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	endpoints := []struct {
		method string
		target string
	}{
		{"GET", "/stats/analytics"},
		{"GET", "/dashboard/stats"},
		{"GET", "/stats/artists/top"},
		{"GET", "/stats/artist/1/strength"},
		{"POST", "/stats/batch-calculate"},
		{"GET", "/stats/batch-calculate/some-id"},
	}

	for _, e := range endpoints {
		t.Run(e.method+" "+e.target, func(t *testing.T) {
			resp, _ := doRequest(t, app, e.method, e.target, "", "")
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestLogin(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)
	testsupport.CreateTestUserForAuth(t, db, "listener@example.com", testPassword)

	t.Run("rejects wrong password", func(t *testing.T) {
		resp, _ := doRequest(t, app, "POST", "/login", "",
			`{"email":"listener@example.com","password":"wrong"}`)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects unknown email", func(t *testing.T) {
		resp, _ := doRequest(t, app, "POST", "/login", "",
			`{"email":"nobody@example.com","password":"whatever"}`)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("sets session on valid credentials", func(t *testing.T) {
		session := testsupport.LoginTestUser(t, app, "listener@example.com", testPassword)
		assert.NotEmpty(t, session)
	})
}

func TestBatchCalculateAdminOnly(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestUserForAuth(t, db, "regular@example.com", testPassword)
	testsupport.CreateTestAdminForAuth(t, db, "admin@example.com", testPassword)

	artist := testsupport.CreateTestArtist(t, db, "Batch HTTP Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Batch HTTP Track")
	testsupport.CreatePlayEvents(t, db, track.ID, 5, time.Now().UTC().Add(-time.Hour))

	t.Run("non-admin is forbidden", func(t *testing.T) {
		session := testsupport.LoginTestUser(t, app, "regular@example.com", testPassword)
		resp, _ := doRequest(t, app, "POST", "/stats/batch-calculate", session, `{"timeRange":"7d"}`)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin trigger is accepted and status is queryable", func(t *testing.T) {
		session := testsupport.LoginTestUser(t, app, "admin@example.com", testPassword)

		resp, raw := doRequest(t, app, "POST", "/stats/batch-calculate", session, `{"timeRange":"7d"}`)
		require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		var accepted struct {
			JobID     string `json:"job_id"`
			TimeRange string `json:"time_range"`
			Status    string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(raw, &accepted))
		require.NotEmpty(t, accepted.JobID)
		assert.Equal(t, "7d", accepted.TimeRange)

		require.Eventually(t, func() bool {
			resp, raw := doRequest(t, app, "GET", "/stats/batch-calculate/"+accepted.JobID, session, "")
			if resp.StatusCode != fiber.StatusOK {
				return false
			}
			var job struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(raw, &job); err != nil {
				return false
			}
			return job.Status == "completed"
		}, 10*time.Second, 100*time.Millisecond)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		session := testsupport.LoginTestUser(t, app, "admin@example.com", testPassword)
		resp, _ := doRequest(t, app, "GET", "/stats/batch-calculate/nope", session, "")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestAnalyticsStats(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	testsupport.CreateTestUserForAuth(t, db, "artist-owner@example.com", testPassword)
	artist := testsupport.CreateTestArtist(t, db, "Analytics Artist")
	track := testsupport.CreateTestTrack(t, db, artist.ID, "Analytics Track")
	testsupport.CreatePlayEvents(t, db, track.ID, 3, time.Now().UTC().Add(-time.Hour))

	session := testsupport.LoginTestUser(t, app, "artist-owner@example.com", testPassword)

	t.Run("aggregates plays for an artist", func(t *testing.T) {
		target := fmt.Sprintf("/stats/analytics?artistId=%d&timeRange=24h&metric=plays", artist.ID)
		resp, raw := doRequest(t, app, "GET", target, session, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			Metric    string `json:"metric"`
			TimeRange string `json:"time_range"`
			Stats     struct {
				TotalPlays int64 `json:"total_plays"`
			} `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "plays", body.Metric)
		assert.Equal(t, "24h", body.TimeRange)
		assert.Equal(t, int64(3), body.Stats.TotalPlays)
	})

	t.Run("unknown time range resolves to all-time instead of failing", func(t *testing.T) {
		target := fmt.Sprintf("/stats/analytics?artistId=%d&timeRange=fortnight", artist.ID)
		resp, raw := doRequest(t, app, "GET", target, session, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			TimeRange string `json:"time_range"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "all", body.TimeRange)
	})

	t.Run("global stats are admin only", func(t *testing.T) {
		resp, _ := doRequest(t, app, "GET", "/stats/analytics?timeRange=24h", session, "")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestPublicEventIngestion(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	t.Run("accepts a play event", func(t *testing.T) {
		body := `{"kind":"play","trackId":1,"sessionId":"s-1","source":"search","durationSeconds":90,"completionRate":0.75}`
		resp, _ := doRequest(t, app, "POST", "/x/api/v1/events", "", body)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	})

	t.Run("accepts a cross-site play event", func(t *testing.T) {
		body := `{"kind":"play","trackId":1,"sessionId":"s-cross","source":"embed","durationSeconds":45,"completionRate":0.5}`
		req := httptest.NewRequest("POST", "/x/api/v1/events", strings.NewReader(body))
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Sec-Fetch-Site", "cross-site")

		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		body := `{"kind":"pageview","trackId":1,"sessionId":"s-2"}`
		resp, raw := doRequest(t, app, "POST", "/x/api/v1/events", "", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(raw), "INVALID_EVENT")
	})

	t.Run("rejects a play without a track", func(t *testing.T) {
		body := `{"kind":"play","sessionId":"s-3"}`
		resp, _ := doRequest(t, app, "POST", "/x/api/v1/events", "", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestHealthEndpoint(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app := testsupport.CreateMinimalTestApp(t, db)

	resp, raw := doRequest(t, app, "GET", "/_health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "ok")
}
