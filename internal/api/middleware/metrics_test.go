package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Connection takeover must work through the metrics wrapper, both via
// http.ResponseController and a direct http.Hijacker assertion, or the
// websocket upgrade on /ws fails with a 500.
func TestMetricsWriterAllowsHijack(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Hijacker)
		assert.True(t, ok, "wrapped writer must expose http.Hijacker")

		conn, bufrw, err := http.NewResponseController(w).Hijack()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer conn.Close()
		bufrw.WriteString("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n\r\n")
		bufrw.Flush()
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
