package httpkit

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestParseAccessToken(t *testing.T) {
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		claims  jwt.MapClaims
		wantErr bool
	}{
		{name: "valid", claims: jwt.MapClaims{"sub": userID.String(), "type": "access", "roles": []string{"admin"}, "exp": exp}},
		{name: "refresh token", claims: jwt.MapClaims{"sub": userID.String(), "type": "refresh", "exp": exp}, wantErr: true},
		{name: "expired", claims: jwt.MapClaims{"sub": userID.String(), "type": "access", "exp": time.Now().Add(-time.Minute).Unix()}, wantErr: true},
		{name: "no expiry", claims: jwt.MapClaims{"sub": userID.String(), "type": "access"}, wantErr: true},
		{name: "bad subject", claims: jwt.MapClaims{"sub": "user-1", "type": "access", "exp": exp}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, roles, err := parseAccessToken(sign(t, tt.claims, jwt.SigningMethodHS256), testSecret)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotID != userID {
				t.Fatalf("expected user %s, got %s", userID, gotID)
			}
			if len(roles) != 1 || roles[0] != "admin" {
				t.Fatalf("unexpected roles %v", roles)
			}
		})
	}
}

func TestParseAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{"sub": uuid.NewString(), "type": "access", "exp": time.Now().Add(time.Hour).Unix()}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := parseAccessToken(unsigned, testSecret); err == nil {
		t.Fatal("expected alg none to be rejected")
	}
}

func TestIPRateLimiterSweepsIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1, nil)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !limiter.allow("10.0.0.1", start) {
		t.Fatal("first request should pass")
	}
	if limiter.allow("10.0.0.1", start) {
		t.Fatal("second request in the same instant should be throttled")
	}

	later := start.Add(visitorIdle + time.Minute)
	if !limiter.allow("10.0.0.2", later) {
		t.Fatal("new visitor should pass")
	}
	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Fatal("idle visitor should have been swept")
	}
}
