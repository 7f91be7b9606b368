package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndUnmatchedPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics("/metrics"))
	r.GET("/verse/:id", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	okCounter := httpReqs.WithLabelValues(http.MethodGet, "/verse/:id", "200")
	missCounter := httpReqs.WithLabelValues(http.MethodGet, unmatchedPath, "404")
	scrapeCounter := httpReqs.WithLabelValues(http.MethodGet, "/metrics", "200")
	okBefore := testutil.ToFloat64(okCounter)
	missBefore := testutil.ToFloat64(missCounter)
	scrapeBefore := testutil.ToFloat64(scrapeCounter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/verse/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/verse/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := testutil.ToFloat64(okCounter); got != okBefore+2 {
		t.Fatalf("route counter = %v; want %v", got, okBefore+2)
	}
	if got := testutil.ToFloat64(missCounter); got != missBefore+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, missBefore+1)
	}
	if got := testutil.ToFloat64(scrapeCounter); got != scrapeBefore {
		t.Fatalf("skipped path should not be counted")
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight gauge should return to 0, got %v", got)
	}
	if n := testutil.CollectAndCount(httpLat); n == 0 {
		t.Fatalf("expected latency observations")
	}
}
