package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/logger"
	"github.com/vircom/folio/internal/types"
)

func newTestRouter(limiter *TenantRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware, ErrorHandler(logger.NewNopLogger()))

	g := r.Group("/v1", TenantMiddleware)
	g.POST("/repair", RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": types.GetTenantID(c.Request.Context())})
	})
	g.GET("/missing", func(c *gin.Context) {
		c.Error(ierr.NewError("document not found").
			WithHint("Document not found").
			WithReportableDetails(map[string]any{"document_id": "doc_1"}).
			Mark(ierr.ErrNotFound))
	})
	return r
}

func do(r http.Handler, method, path, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if tenantID != "" {
		req.Header.Set(types.HeaderTenantID, tenantID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ierr.ErrorResponse {
	t.Helper()
	var resp ierr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTenantHeaderRequired(t *testing.T) {
	r := newTestRouter(NewTenantRateLimiter(0))

	w := do(r, http.MethodPost, "/v1/repair", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Display, types.HeaderTenantID)

	w = do(r, http.MethodPost, "/v1/repair", "tenant_a")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tenant_a")
	assert.NotEmpty(t, w.Header().Get(types.HeaderRequestID))
}

func TestErrorHandlerRendersHintAndDetails(t *testing.T) {
	r := newTestRouter(NewTenantRateLimiter(0))

	w := do(r, http.MethodGet, "/v1/missing", "tenant_a")
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Document not found", resp.Error.Display)
	assert.Equal(t, "doc_1", resp.Error.Details["document_id"])
}

func TestRateLimitIsPerTenant(t *testing.T) {
	r := newTestRouter(NewTenantRateLimiter(2))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/repair", "tenant_a").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/repair", "tenant_a").Code)

	w := do(r, http.MethodPost, "/v1/repair", "tenant_a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "tenant_a", decodeError(t, w).Error.Details["tenant_id"])

	// other tenants keep their own budget
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/repair", "tenant_b").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := NewTenantRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("tenant_a"))
	}
}

func TestIdleTenantBucketsAreDropped(t *testing.T) {
	limiter := newTenantRateLimiter(1, 20*time.Millisecond)

	require.True(t, limiter.Allow("tenant_a"))
	require.False(t, limiter.Allow("tenant_a"))

	// once evicted the tenant starts over with a full bucket
	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow("tenant_a"))
	assert.Equal(t, 1, limiter.limiters.ItemCount())
}
