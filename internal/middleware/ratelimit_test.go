package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func testRateLimiterConfig(generalBurst, likeBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		LikeRate:        1,
		LikeBurst:       likeBurst,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	return req
}

func serveStatus(h http.Handler, req *http.Request) int {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result().StatusCode
}

func TestRateLimitMiddleware_AllowsBurstThenReturns429(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		if status := serveStatus(handler, requestAs("user-1")); status != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, status, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("user-1"))

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", resp.Header.Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
}

func TestRateLimitMiddleware_IsolatesUsers(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	serveStatus(handler, requestAs("user-a"))
	if status := serveStatus(handler, requestAs("user-a")); status != http.StatusTooManyRequests {
		t.Errorf("user-a second request: status = %d, want 429", status)
	}
	if status := serveStatus(handler, requestAs("user-b")); status != http.StatusOK {
		t.Errorf("user-b first request: status = %d, want 200", status)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

func TestRateLimitMiddleware_NoUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 5))
	defer rl.Stop()

	if status := serveStatus(rl.GeneralMiddleware()(okHandler()), requestAs("")); status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if status := serveStatus(rl.LikeMiddleware()(okHandler()), requestAs("")); status != http.StatusUnauthorized {
		t.Errorf("like: status = %d, want 401", status)
	}
}

func TestLikeRateLimit_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	likeHandler := rl.GeneralMiddleware()(rl.LikeMiddleware()(okHandler()))
	generalHandler := rl.GeneralMiddleware()(okHandler())

	if status := serveStatus(likeHandler, requestAs("user-1")); status != http.StatusOK {
		t.Fatalf("first like: status = %d, want 200", status)
	}
	if status := serveStatus(likeHandler, requestAs("user-1")); status != http.StatusTooManyRequests {
		t.Errorf("second like: status = %d, want 429", status)
	}
	// いいねの上限に達しても他のAPIは使える
	if status := serveStatus(generalHandler, requestAs("user-1")); status != http.StatusOK {
		t.Errorf("general after like limit: status = %d, want 200", status)
	}
	if got := rl.LikeLimiterCount(); got != 1 {
		t.Errorf("LikeLimiterCount = %d, want 1", got)
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 5))
	defer rl.Stop()

	serveStatus(rl.GeneralMiddleware()(okHandler()), requestAs("user-old"))
	serveStatus(rl.LikeMiddleware()(okHandler()), requestAs("user-old"))

	rl.cleanup(time.Now().Add(time.Minute))
	if rl.GeneralLimiterCount() != 1 || rl.LikeLimiterCount() != 1 {
		t.Fatal("entries within TTL must be kept")
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.GeneralLimiterCount() != 0 || rl.LikeLimiterCount() != 0 {
		t.Errorf("expired entries not removed: general=%d like=%d", rl.GeneralLimiterCount(), rl.LikeLimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	rl.Stop()
	rl.Stop()
}

func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)
	if cfg.GeneralBurst != 120 || cfg.LikeBurst != 30 {
		t.Errorf("bursts = %d/%d, want 120/30", cfg.GeneralBurst, cfg.LikeBurst)
	}
	if float64(cfg.GeneralRate) != 2.0 {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if float64(cfg.LikeRate) != 0.5 {
		t.Errorf("LikeRate = %v, want 0.5", cfg.LikeRate)
	}

	zero := NewRateLimiterConfig(0, -1)
	if zero.GeneralBurst != 1 || zero.LikeBurst != 1 {
		t.Errorf("non-positive limits should clamp to 1, got %d/%d", zero.GeneralBurst, zero.LikeBurst)
	}

	if DefaultRateLimiterConfig() != cfg {
		t.Error("DefaultRateLimiterConfig should equal NewRateLimiterConfig(120, 30)")
	}
}
