package rest

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/koulio-auth/internal/logging"
	"github.com/dmitrijs2005/koulio-auth/internal/server/auth"
	"github.com/dmitrijs2005/koulio-auth/internal/server/config"
	"github.com/dmitrijs2005/koulio-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/koulio-auth/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

type testAPI struct {
	router *gin.Engine
	tokens *auth.TokenService
}

// newTestAPI wires the real service stack over the in-memory store. The
// sqlite handle only backs the transactions opened by the service.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour, 2*time.Hour)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost, logging.NopLogger{})
	cfg := &config.Config{DBQueryTimeout: 5 * time.Second}

	us := services.NewUserService(db, repomanager.NewInMemoryRepositoryManager(), hasher, tokens, cfg, logging.NopLogger{})
	h := NewHandler(us, logging.NopLogger{})

	return &testAPI{
		router: NewRouter("koulio-auth-test", h, tokens, logging.NopLogger{}),
		tokens: tokens,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	return doRequest(t, a.router, method, path, token, body)
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	}
	return w.Code, out
}

func (a *testAPI) register(t *testing.T, email, password, name string) (access, refresh string) {
	t.Helper()
	code, body := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "password": password, "full_name": name,
	})
	require.Equal(t, http.StatusCreated, code, "body: %v", body)
	return body["access_token"].(string), body["refresh_token"].(string)
}
