package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/config"
	"github.com/ragpanel/ragpanel-be/internal/database"
	"github.com/ragpanel/ragpanel-be/internal/monitoring"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/ragpanel/ragpanel-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T, botAPIURL string) *chi.Mux {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AppEnv:           "test",
		CORSOrigin:       "http://localhost:3000",
		JWTSecret:        "test-secret",
		TokenExpiry:      time.Hour,
		BcryptCost:       bcrypt.MinCost,
		BotAPIURL:        botAPIURL,
		BotTimeout:       time.Second,
		MongoBaseURI:     "mongodb://localhost:27017",
		BotBaseURL:       "http://localhost:8001/bots",
		SchedulerBaseURL: "http://localhost:8002/schedules",
		ScraperBaseURL:   "http://localhost:8003/scrapers",
	}

	hub := websocket.NewHub()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenExpiry)
	accountService := services.NewAccountService(db, cfg.BcryptCost)
	eventService := services.NewEventService(db)
	statusService := services.NewStatusService(db)
	provisionService := services.NewProvisionService(db, services.LocatorBases{
		MongoBaseURI:     cfg.MongoBaseURI,
		BotBaseURL:       cfg.BotBaseURL,
		SchedulerBaseURL: cfg.SchedulerBaseURL,
		ScraperBaseURL:   cfg.ScraperBaseURL,
	})
	botService := services.NewBotService(cfg.BotAPIURL, cfg.BotTimeout)
	statUpdater := monitoring.NewStatUpdater(hub)

	return NewRouter(cfg, tokens, hub, accountService, provisionService, botService, eventService, statusService, statUpdater)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "http://localhost:0")

	// Register
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var summary map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "alice", summary["username"])
	assert.Equal(t, "alice@example.com", summary["email"])
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	// Login
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, "alice", loginResp.User.Username)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	// Protected profile fetch provisions the resource locators lazily
	rec = doJSON(t, router, http.MethodGet, "/api/v1/users/me", loginResp.Token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile["username"])
	for _, key := range []string{"databaseUri", "botEndpoint", "schedulerEndpoint", "scraperEndpoint"} {
		assert.NotEmpty(t, profile[key], "locator %s must be provisioned", key)
	}
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	// A second fetch returns the identical locator set
	rec2 := doJSON(t, router, http.MethodGet, "/api/v1/users/me", loginResp.Token, "")
	require.Equal(t, http.StatusOK, rec2.Code)
	var profile2 map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &profile2))
	assert.Equal(t, profile["databaseUri"], profile2["databaseUri"])
}

func TestRegister_DuplicateIsFieldTagged(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "http://localhost:0")

	body := `{"name":"Alice","email":"alice@example.com","username":"alice","password":"secret1"}`
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "email", errResp["field"])
	assert.NotEmpty(t, errResp["error"])
}

func TestLogin_AntiEnumeration(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "http://localhost:0")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	unknownUser := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"nouser","password":"x"}`)
	wrongPass := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"wrongpass"}`)

	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, unknownUser.Body.String(), wrongPass.Body.String(),
		"login failure payloads must be byte-identical")
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "http://localhost:0")

	for _, path := range []string{"/api/v1/users/me", "/api/v1/events", "/api/v1/system/status"} {
		rec := doJSON(t, router, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var errResp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "missing_token", errResp["code"], path)
	}
}

func registerAndLogin(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Alice","email":"alice@example.com","username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	return loginResp.Token
}

func TestBotQuery_ProxiesDownstream(t *testing.T) {
	t.Parallel()

	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"hello from the bot","sources":["kb/1"]}`))
	}))
	defer downstream.Close()

	router := newTestRouter(t, downstream.URL)
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/bot/query", token, `{"input":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello from the bot", resp["answer"])
	assert.NotEmpty(t, resp["session_id"])
}

func TestBotQuery_DownstreamFailureStatusCodes(t *testing.T) {
	t.Parallel()

	t.Run("upstream 500 maps to 502", func(t *testing.T) {
		downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
		}))
		defer downstream.Close()

		router := newTestRouter(t, downstream.URL)
		token := registerAndLogin(t, router)

		rec := doJSON(t, router, http.MethodPost, "/api/v1/bot/query", token, `{"input":"hi"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var errResp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
		assert.Equal(t, "upstream_server_error", errResp["code"])
		assert.NotEmpty(t, errResp["detail"], "detail is included outside production")
	})

	t.Run("refused connection maps to 503", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := l.Addr().String()
		require.NoError(t, l.Close())

		router := newTestRouter(t, "http://"+addr)
		token := registerAndLogin(t, router)

		rec := doJSON(t, router, http.MethodPost, "/api/v1/bot/query", token, `{"input":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("missing input is a validation error", func(t *testing.T) {
		router := newTestRouter(t, "http://localhost:0")
		token := registerAndLogin(t, router)

		rec := doJSON(t, router, http.MethodPost, "/api/v1/bot/query", token, `{"input":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEventsEndpoint_RecordsAuditTrail(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, "http://localhost:0")
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/events", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	types := make(map[string]bool)
	for _, e := range resp.Events {
		types[e.Type] = true
	}
	assert.True(t, types["auth.register"], "registration is audited")
	assert.True(t, types["auth.login"], "login is audited")
}
