// Package ratelimit throttles session token submissions and settings writes
// per client address.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	// Session token limits
	SessionMaxRejected int           // Rejected tokens per IP before lockout (default: 5)
	SessionLockout     time.Duration // Lockout duration (default: 5m)

	// Settings writes (save and toggle)
	WritesPerMinute int // Max writes per IP per minute (default: 60)

	TrustProxy bool

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		SessionMaxRejected: 5,
		SessionLockout:     5 * time.Minute,
		WritesPerMinute:    60,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count    int
	firstAt  time.Time
	lastAt   time.Time
	lockedAt time.Time // zero if not locked
}

// Limiter keeps per-IP counters in memory.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex

	rejected map[string]*entry
	writes   map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		rejected:      make(map[string]*entry),
		writes:        make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckSession reports whether ip may submit a session token.
// It does not record anything; call RecordRejectedSession when the token is refused.
func (l *Limiter) CheckSession(ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.rejected[ip]
	if e == nil {
		return LimitResult{Allowed: true}
	}
	if !e.lockedAt.IsZero() {
		if elapsed := now.Sub(e.lockedAt); elapsed < l.config.SessionLockout {
			return LimitResult{
				Allowed:    false,
				RetryAfter: l.config.SessionLockout - elapsed,
				Reason:     "lockout",
			}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordRejectedSession counts a refused token. It returns true when this
// rejection started a lockout.
func (l *Limiter) RecordRejectedSession(ip string) (lockedOut bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.rejected[ip]
	switch {
	case e == nil:
		e = &entry{count: 1, firstAt: now, lastAt: now}
		l.rejected[ip] = e
	case !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.SessionLockout:
		// Lockout expired, start over
		e = &entry{count: 1, firstAt: now, lastAt: now}
		l.rejected[ip] = e
	default:
		e.count++
		e.lastAt = now
	}

	if e.count >= l.config.SessionMaxRejected && e.lockedAt.IsZero() {
		e.lockedAt = now
		lockedOut = true
	}
	return lockedOut
}

// ResetSession clears the rejection counter after a token is accepted.
func (l *Limiter) ResetSession(ip string) {
	l.mu.Lock()
	delete(l.rejected, ip)
	l.mu.Unlock()
}

// AllowWrite checks and records one settings write for ip.
func (l *Limiter) AllowWrite(ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.writes[ip]
	if e == nil || now.Sub(e.firstAt) >= time.Minute {
		l.writes[ip] = &entry{count: 1, firstAt: now, lastAt: now}
		return LimitResult{Allowed: true}
	}
	if e.count >= l.config.WritesPerMinute {
		return LimitResult{
			Allowed:    false,
			RetryAfter: time.Minute - now.Sub(e.firstAt),
			Reason:     "write_limit",
		}
	}
	e.count++
	e.lastAt = now
	return LimitResult{Allowed: true}
}

// LimitWrites wraps a handler that changes settings. Requests over the
// limit get 429 with a Retry-After header.
func (l *Limiter) LimitWrites(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r, l.config.TrustProxy)
		result := l.AllowWrite(ip)
		if !result.Allowed {
			LogRateLimitExceeded("write", ip, result.Reason)
			writeTooManyRequests(w, result.RetryAfter)
			return
		}
		next(w, r)
	}
}

// GuardSession wraps the session token handler. Responses with status 400
// count as rejected tokens; a 2xx response resets the counter.
func (l *Limiter) GuardSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r, l.config.TrustProxy)
		if result := l.CheckSession(ip); !result.Allowed {
			LogRateLimitExceeded("session", ip, result.Reason)
			writeTooManyRequests(w, result.RetryAfter)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		switch {
		case rec.status == http.StatusBadRequest:
			if l.RecordRejectedSession(ip) {
				LogRateLimitExceeded("session", ip, "max_rejected")
			}
		case rec.status < 300:
			l.ResetSession(ip)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int((retryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests. Try again later."}`))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	maxAge := l.config.SessionLockout + time.Hour
	for k, e := range l.rejected {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.rejected, k)
		}
	}
	for k, e := range l.writes {
		if now.Sub(e.firstAt) >= time.Minute {
			delete(l.writes, k)
		}
	}
}

// GetClientIP extracts the client IP from a request.
// When trustProxy is true, uses the rightmost public IP from X-Forwarded-For.
// When trustProxy is false, ignores X-Forwarded-For entirely.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			return strings.TrimSpace(parts[len(parts)-1])
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. a Unix socket
		return r.RemoteAddr
	}
	return ip
}

var privateNetworks []*net.IPNet

func init() {
	privateRanges := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

// isPrivateIP also matches IPv4-mapped IPv6 addresses.
func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func LogRateLimitExceeded(limitType, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", limitType).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Rate limit exceeded")
}
