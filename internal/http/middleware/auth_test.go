package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"lifelink/internal/http/middleware"
	"lifelink/internal/identity"
	"lifelink/internal/infra"
)

type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func newTestRouter(verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		p := middleware.Principal(c)
		c.JSON(http.StatusOK, gin.H{
			"uid":       middleware.CallerUID(c),
			"role":      middleware.CallerRole(c),
			"principal": string(p.Role()),
		})
	})
	return r
}

func get(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejects(t *testing.T) {
	ok := &stubVerifier{token: &infra.FirebaseToken{UID: "user1"}}
	cases := []struct {
		name     string
		verifier infra.TokenVerifier
		header   string
	}{
		{"missing header", ok, ""},
		{"wrong scheme", ok, "Token sometoken"},
		{"empty bearer", ok, "Bearer   "},
		{"verifier error", &stubVerifier{err: errors.New("bad token")}, "Bearer invalid"},
		{"unknown role", &stubVerifier{token: &infra.FirebaseToken{UID: "u", Claims: map[string]interface{}{"role": "pilot"}}}, "Bearer t"},
		{"empty uid", &stubVerifier{token: &infra.FirebaseToken{Claims: map[string]interface{}{"role": "admin"}}}, "Bearer t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := get(newTestRouter(tc.verifier), tc.header); w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuthResolvesPrincipal(t *testing.T) {
	cases := []struct {
		claims map[string]interface{}
		want   identity.Role
	}{
		{map[string]interface{}{"role": "hospital"}, identity.RoleHospital},
		{map[string]interface{}{"role": "admin"}, identity.RoleAdmin},
		{map[string]interface{}{}, identity.RoleDonor},
	}
	for _, tc := range cases {
		r := newTestRouter(&stubVerifier{token: &infra.FirebaseToken{UID: "abc123", Claims: tc.claims}})
		w := get(r, "Bearer validtoken")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"uid":"abc123"`) || !strings.Contains(body, `"principal":"`+string(tc.want)+`"`) {
			t.Errorf("claims %v: unexpected body %s", tc.claims, body)
		}
	}
}

func TestDevVerifierTokens(t *testing.T) {
	r := newTestRouter(infra.NewDevVerifier())
	if w := get(r, "Bearer hospital:hosp_1"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hosp_1") {
		t.Fatalf("dev token rejected: %d %s", w.Code, w.Body.String())
	}
	if w := get(r, "Bearer hosp_1"); w.Code != http.StatusUnauthorized {
		t.Fatalf("token without role must be rejected, got %d", w.Code)
	}
}

func TestRecoveryAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log, nil))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	r.GET("/fine", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if logs.FilterMessage("panic in handler").Len() != 1 {
		t.Fatalf("panic not logged")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fine", nil))
	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 || entries[0].ContextMap()["route"] != "/fine" {
		t.Fatalf("unexpected request logs %+v", entries)
	}
}
