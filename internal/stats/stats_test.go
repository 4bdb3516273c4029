package stats

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// expvar panics on duplicate map names, so the updater is built once
// and shared across subtests.
func TestStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)

	t.Run("registers the debug vars route", func(t *testing.T) {
		assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
		assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
		handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
		assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
		assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
	})

	t.Run("applies counter deltas in order", func(t *testing.T) {
		su.RegisterMetric("TestCounter")
		su.Run()
		defer su.Stop()

		su.Incr("TestCounter")
		su.Incr("TestCounter")
		su.Decr("TestCounter")

		assert.Eventually(t, func() bool {
			return su.vars.Get("TestCounter").String() == "1"
		}, time.Second, 10*time.Millisecond, "expected counter to settle at 1")
	})
}
