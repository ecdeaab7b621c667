package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zulfikawr/freight/internal/metrics"
	"github.com/zulfikawr/freight/internal/protocol"
)

// corsMiddleware applies the configured CORS policy and short-circuits
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origins := strings.Join(s.cfg.CORSOrigins, ", ")
	methods := strings.Join(s.cfg.CORSMethods, ", ")
	headers := strings.Join(s.cfg.CORSHeaders, ", ")
	maxAge := strconv.Itoa(s.cfg.CORSMaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origins != "" {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			w.Header().Set("Access-Control-Max-Age", maxAge)
			if s.cfg.CORSCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// acquireSlot claims a concurrent-upload slot without blocking. When the
// server is at capacity the request is shed with 503 and a Retry-After hint.
func (s *Server) acquireSlot(w http.ResponseWriter, r *http.Request) bool {
	select {
	case s.uploadSlots <- struct{}{}:
		metrics.ActiveChunkUploads.Inc()
		return true
	default:
		metrics.RequestsShed.Inc()
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(protocol.ErrorResponse{
			Timestamp: time.Now().UTC(),
			Status:    http.StatusServiceUnavailable,
			Error:     http.StatusText(http.StatusServiceUnavailable),
			Message:   "server is at maximum concurrent uploads, retry shortly",
			Path:      r.URL.Path,
			ErrorCode: protocol.CodeServerBusy,
		})
		return false
	}
}

func (s *Server) releaseSlot() {
	<-s.uploadSlots
	metrics.ActiveChunkUploads.Dec()
}

// observe records request duration for one endpoint.
func observe(endpoint string, status int, start time.Time) {
	metrics.RequestDuration.
		WithLabelValues(endpoint, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}

// throttledReader paces reads through a shared token bucket so that
// aggregate inbound bandwidth stays under the configured ceiling.
type throttledReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 && t.limiter != nil {
		burst := t.limiter.Burst()
		remaining := n
		for remaining > 0 {
			chunk := remaining
			if chunk > burst {
				chunk = burst
			}
			if werr := t.limiter.WaitN(t.ctx, chunk); werr != nil {
				return n, werr
			}
			remaining -= chunk
		}
	}
	return n, err
}

// bodyReader wraps the request body with the size cap and, when configured,
// the bandwidth limiter.
func (s *Server) bodyReader(w http.ResponseWriter, r *http.Request, limit int64) io.Reader {
	var rd io.Reader = http.MaxBytesReader(w, r.Body, limit)
	if s.limiter != nil {
		rd = &throttledReader{r: rd, limiter: s.limiter, ctx: r.Context()}
	}
	return rd
}
