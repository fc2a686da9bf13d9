package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualtree-sched/dualtreequeue/pkg/cache"
	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
	"github.com/dualtree-sched/dualtreequeue/pkg/tree"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ll := tree.NewLeaf("QL", 1, metric.Bound{Low: 0, High: 1})
	lr := tree.NewLeaf("QR", 1, metric.Bound{Low: 1, High: 2})
	root := tree.NewInternal("Q", ll, lr)

	q := dualtree.New()
	q.Init(tree.QueryTable{Root: root}, 1, cache.NewInMemory())

	s := New(Config{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		CorsOrigins: []string{"*"},
	}, q, nil)
	require.NoError(t, s.auth.SetOperatorPassword("hunter2"))
	return s
}

func TestSizeRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	router := s.router()

	req := httptest.NewRequest(http.MethodGet, "/v1/queue/size", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginThenSize(t *testing.T) {
	s := newTestServer(t)
	router := s.router()

	body, err := json.Marshal(loginRequest{Password: "hunter2"})
	require.NoError(t, err)

	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	sizeReq := httptest.NewRequest(http.MethodGet, "/v1/queue/size", nil)
	sizeReq.Header.Set("Authorization", "Bearer "+resp.Token)
	sizeRec := httptest.NewRecorder()
	router.ServeHTTP(sizeRec, sizeReq)

	assert.Equal(t, http.StatusOK, sizeRec.Code)
	var sizeResp map[string]int
	require.NoError(t, json.Unmarshal(sizeRec.Body.Bytes(), &sizeResp))
	assert.Equal(t, 2, sizeResp["size"])
}

func TestLoginWithWrongPasswordIsRejected(t *testing.T) {
	s := newTestServer(t)
	router := s.router()

	body, err := json.Marshal(loginRequest{Password: "wrong"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsReflectsQueueState(t *testing.T) {
	s := newTestServer(t)
	router := s.router()

	token, err := s.auth.issueToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/queue/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var m queueMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, 2, m.Slots)
	assert.True(t, m.Empty)
}
