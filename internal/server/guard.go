package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/docqa-go/internal/logging"
)

const (
	// defaultRateLimit is the sustained requests/second allowed per client IP.
	defaultRateLimit = 10
	// defaultRateBurst is the per-IP bucket size.
	defaultRateBurst = 20
	// visitorTTL is how long an idle client's bucket is kept.
	visitorTTL = 5 * time.Minute
	// sweepInterval is how often idle buckets are dropped.
	sweepInterval = time.Minute
)

// Rejection reasons, used as the "reason" metric label.
const (
	rejectRateLimited  = "rate_limited"
	rejectMissingToken = "missing_token"
	rejectInvalidToken = "invalid_token"
)

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// throttle holds one token bucket per client IP.
type throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newThrottle(rps float64, burst int) *throttle {
	return &throttle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// allow takes a token for ip at now. When the bucket is empty it reports
// false and the time until a token is available; no token is consumed.
func (t *throttle) allow(ip string, now time.Time) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.seen = now

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// sweep drops buckets idle since before now-visitorTTL and returns how many
// were dropped.
func (t *throttle) sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-visitorTTL)
	dropped := 0
	for ip, v := range t.visitors {
		if v.seen.Before(cutoff) {
			delete(t.visitors, ip)
			dropped++
		}
	}
	return dropped
}

// run sweeps idle buckets every sweepInterval until ctx is done.
func (t *throttle) run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

// guard protects the model-backed and mutating routes. Requests pass the
// per-IP rate limit first and then, when an API key is configured, must
// present it as a Bearer token. Token values are never logged.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		ip := clientIP(r)
		if ok, wait := s.throttle.allow(ip, time.Now()); !ok {
			s.metrics.reject(rejectRateLimited)
			log.Warn("server: rate limit exceeded", slog.String("ip", ip))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(wait)))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		if s.cfg.APIKey != "" {
			if reason := checkToken(r, s.cfg.APIKey); reason != "" {
				s.metrics.reject(reason)
				log.Warn("server: request rejected", slog.String("reason", reason))
				challenge := `Bearer realm="docqa"`
				msg := "authorization required"
				if reason == rejectInvalidToken {
					challenge += `, error="invalid_token"`
					msg = "invalid token"
				}
				w.Header().Set("WWW-Authenticate", challenge)
				writeError(w, r, http.StatusUnauthorized, msg)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// checkToken returns the rejection reason for r, or "" when it carries key.
func checkToken(r *http.Request, key string) string {
	token, ok := bearerToken(r)
	if !ok {
		return rejectMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
		return rejectInvalidToken
	}
	return ""
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientIP is the host part of RemoteAddr. X-Forwarded-For is ignored: the
// server binds to loopback by default and is not meant to sit behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfter rounds wait up to whole seconds, at least 1.
func retryAfter(wait time.Duration) int {
	return max(1, int(math.Ceil(wait.Seconds())))
}
