package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlecapa/finbox/internal/auth"
	"github.com/littlecapa/finbox/internal/config"
	"github.com/littlecapa/finbox/internal/store"
)

func newTestServer(t *testing.T, verifier *auth.JWTVerifier) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return &Server{Store: st, Config: &config.Config{}, Verifier: verifier}
}

func do(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStockEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	w := do(t, r, http.MethodPost, "/api/stocks", `{"isin":"DE0007164600","name":"SAP SE","symbol":"SAP"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/stocks/DE0007164600", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st store.Stock
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "SAP SE", st.Name)

	w = do(t, r, http.MethodGet, "/api/stocks/XX0000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/stocks", `{"name":"no isin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/api/stocks/DE0007164600", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	do(t, r, http.MethodPost, "/api/stocks", `{"isin":"DE0007164600","name":"SAP SE"}`, nil)
	do(t, r, http.MethodPost, "/api/holdings", `{"isin":"DE0007164600","quantity":10,"avg_price":100}`, nil)

	w := do(t, r, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalStocks)
	assert.InDelta(t, 1000.0, stats.TotalHoldingsValue, 0.001)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	w := do(t, r, http.MethodGet, "/api/stats", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, r, http.MethodGet, "/api/stats", "", map[string]string{"X-Request-ID": "fixed-id"})
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}

func TestMutationsRequireTokenWhenConfigured(t *testing.T) {
	const secret = "test-secret-test-secret"
	verifier, err := auth.NewJWTVerifier(secret)
	require.NoError(t, err)
	s := newTestServer(t, verifier)
	r := s.Router()

	// reads stay open
	w := do(t, r, http.MethodGet, "/api/stocks", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// mutation without token is rejected
	w = do(t, r, http.MethodPost, "/api/stocks", `{"isin":"DE0007164600","name":"SAP SE"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// mutation with a signed token passes
	key, err := jwk.FromRaw([]byte(secret))
	require.NoError(t, err)
	tok, err := jwt.NewBuilder().
		Subject("user-1").
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, key))
	require.NoError(t, err)

	w = do(t, r, http.MethodPost, "/api/stocks", `{"isin":"DE0007164600","name":"SAP SE"}`,
		map[string]string{"Authorization": "Bearer " + string(signed)})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestDirectoryEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	w := do(t, r, http.MethodPost, "/api/categories", `{"name":"Finance","priority":1}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var cat store.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))

	body := `{"category_id":` + jsonInt(cat.ID) + `,"title":"Kurse","url":"https://example.com"}`
	w = do(t, r, http.MethodPost, "/api/pages", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/api/directory", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dir []store.DirectoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dir))
	require.Len(t, dir, 1)
	require.Len(t, dir[0].Pages, 1)
	assert.Equal(t, "Kurse", dir[0].Pages[0].Title)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
