package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unifiedinbox/internal/categorize"
	"unifiedinbox/internal/ratelimit"
	"unifiedinbox/internal/repository"
	"unifiedinbox/internal/service"
	"unifiedinbox/internal/util"
	"unifiedinbox/pkg/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *Router
	repo   *repository.RuleRepository
}

func newTestServer(t *testing.T, jwtSecret string, limiter *ratelimit.Limiter, ready ReadyCheck) *testServer {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewRuleRepository(categorize.DefaultRules())
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	catSvc := service.NewCategorizeService(categorize.New(categorize.WithClock(now)), repo, nil, logger)
	ruleSvc := service.NewRuleService(repo, nil, logger)

	return &testServer{
		router: NewRouter(
			NewCategorizeHandler(catSvc, logger),
			NewRuleHandler(ruleSvc, logger),
			limiter,
			jwtSecret,
			ready,
			logger,
		),
		repo: repo,
	}
}

func (s *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCategorizeEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize",
		`{"sender":"promo@shop.example","subject":"Weekly picks","content":"Click to unsubscribe from this newsletter"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Marketing", body["category"])
	assert.Equal(t, 0.85, body["confidence"])
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestCategorizeEndpointValidation(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	for _, body := range []string{`{"subject":"hi"}`, `{"sender":"a@b.example"}`, `{"sender":"","subject":""}`, ``} {
		w := s.do(http.MethodPost, "/api/categorize", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Sender and subject are required", decode(t, w)["error"])
	}

	w := s.do(http.MethodPost, "/api/categorize", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, w)["error"])
}

func TestCategorizeAcceptsWhitespaceSenderAndSubject(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize", `{"sender":"   ","subject":" "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["category"])
}

func TestCategorizeToleratesLooseMetadata(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	bodies := []string{
		`{"sender":"a@b.example","subject":"hi","metadata":{"sentToMe":true,"sentDateTime":"Mon Jan 1 2024"}}`,
		`{"sender":"a@b.example","subject":"hi","metadata":{"sentToMe":true,"sentDateTime":""}}`,
		`{"sender":"a@b.example","subject":"hi","metadata":{"sentDateTime":"yesterday-ish"}}`,
		`{"sender":"a@b.example","subject":"hi","metadata":{"importance":1,"isReply":"yes"}}`,
		`{"sender":"a@b.example","subject":"hi","metadata":"oops"}`,
	}
	for _, body := range bodies {
		w := s.do(http.MethodPost, "/api/categorize", body)
		require.Equal(t, http.StatusOK, w.Code, body)
		assert.NotEmpty(t, decode(t, w)["category"], body)
	}
}

func TestCategorizeKeepsIncomingTraceID(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize", `{"sender":"a@b.example","subject":"hi"}`, trace.HeaderName, "trace-123")
	assert.Equal(t, "trace-123", w.Header().Get(trace.HeaderName))
}

func TestBulkEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize/bulk", `{"emails":[
		{"id":"1","sender":"noreply@x.example","subject":"digest"},
		{"id":"2","sender":"friend@example.com","subject":"hello"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(2), body["processed"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "Updates", first["category"])
}

func TestBulkEndpointMixedIDTypes(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize/bulk", `{"emails":[
		{"id":1,"sender":"friend@example.com","subject":"hello"},
		{"id":"2","sender":"friend@example.com","subject":"hello","metadata":{"sentDateTime":""}},
		{"id":true,"sender":"friend@example.com","subject":"hello"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(3), body["processed"])
	results := body["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].(map[string]any)["id"])
	assert.Equal(t, "2", results[1].(map[string]any)["id"])
	assert.Empty(t, results[2].(map[string]any)["id"])
}

func TestBulkEndpointRejectsNonArray(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	for _, body := range []string{`{"emails":"not-an-array"}`, `{}`, `{"emails":{"id":"1"}}`, `{"emails":null}`} {
		w := s.do(http.MethodPost, "/api/categorize/bulk", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Emails must be an array", decode(t, w)["error"])
	}
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/categorize/batch", `{"emails":[
		{"id":"1","sender":"noreply@x.example","subject":"digest"},
		{"id":"2","sender":"boss@corp.example","subject":"Urgent: numbers"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var out categorize.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Processed)
	require.Len(t, out.Emails, 2)
	assert.Equal(t, categorize.CategoryUpdates.Color(), out.Emails[0].CategoryColor)
	assert.Equal(t, 1, out.Stats.ByCategory[categorize.CategoryToRespond])
}

func TestRawEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)
	raw := "From: GitHub <notifications@github.com>\r\n" +
		"To: me@example.com\r\n" +
		"Subject: [repo] New issue\r\n" +
		"Message-ID: <issue-1@github.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Someone opened an issue.\r\n"

	req := httptest.NewRequest(http.MethodPost, "/api/categorize/raw?owner=me@example.com", strings.NewReader(raw))
	req.Header.Set("Content-Type", "message/rfc822")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "issue-1@github.com", body["id"])
	assert.Equal(t, "Updates", body["category"])
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode(t, w)["categories"].([]any)
	assert.Len(t, cats, len(categorize.Categories()))
}

func TestRuleCRUD(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodGet, "/api/rules", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rules"], len(categorize.DefaultRules()))

	w = s.do(http.MethodPost, "/api/rules",
		`{"type":"domain","condition":"equals","value":"corp.example","category":"Important"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	rule := body["rule"].(map[string]any)
	id := rule["id"].(string)
	assert.Equal(t, 0.8, rule["confidence"])

	w = s.do(http.MethodPost, "/api/categorize", `{"sender":"ceo@corp.example","subject":"Q3 plan"}`)
	assert.Equal(t, "Important", decode(t, w)["category"])

	w = s.do(http.MethodPatch, "/api/rules/"+id, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["rule"].(map[string]any)["enabled"])

	w = s.do(http.MethodPost, "/api/categorize", `{"sender":"ceo@corp.example","subject":"Q3 plan"}`)
	assert.Equal(t, "FYI", decode(t, w)["category"])

	w = s.do(http.MethodDelete, "/api/rules/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	w = s.do(http.MethodDelete, "/api/rules/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Rule not found", decode(t, w)["error"])

	w = s.do(http.MethodPatch, "/api/rules/missing", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRuleValidationErrors(t *testing.T) {
	s := newTestServer(t, "", nil, nil)

	w := s.do(http.MethodPost, "/api/rules", `{"type":"header","condition":"equals","value":"x","category":"FYI"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/rules/rule-github-domain", `{"confidence":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rules := s.repo.List()
	assert.Equal(t, 0.85, rules[6].Confidence)
}

func TestRuleMutationsRequireToken(t *testing.T) {
	s := newTestServer(t, "s3cret", nil, nil)

	w := s.do(http.MethodGet, "/api/rules", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/rules/rule-github-domain", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodDelete, "/api/rules/rule-github-domain", "", "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := util.GenerateJWT("ops", "s3cret", time.Hour)
	require.NoError(t, err)
	w = s.do(http.MethodDelete, "/api/rules/rule-github-domain", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, "", ratelimit.NewLimiter(1, 2), nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/categories", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/categories", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/api/categories", "").Code)

	// ops endpoints are not limited
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "").Code)
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, "", nil, func(context.Context) error { return errors.New("broker down") })
	w := s.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s = newTestServer(t, "", nil, nil)
	w = s.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "", nil, nil)
	s.do(http.MethodPost, "/api/categorize", `{"sender":"a@b.example","subject":"hi"}`)

	w := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}
