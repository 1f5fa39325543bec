package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookAuthToken(t *testing.T) {
	s := New(nil, Config{WebhookToken: "s3cret"}, zap.NewNop())
	handler := s.webhookAuthMiddleware(okHandler())

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid webhook token"}`, w.Body.String())
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", nil)
		req.Header.Set("Authorization", "Bearer ")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no token configured skips the check", func(t *testing.T) {
		open := New(nil, Config{}, zap.NewNop())
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", nil)
		w := httptest.NewRecorder()

		open.webhookAuthMiddleware(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestWebhookAuthSignature(t *testing.T) {
	const secret = "topsecret"
	body := []byte(`{"task_id":"T1","status":"accepted"}`)

	s := New(nil, Config{WebhookSecret: secret}, zap.NewNop())

	t.Run("valid signature, body intact downstream", func(t *testing.T) {
		var seen []byte
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error
			seen, err = io.ReadAll(r.Body)
			require.NoError(t, err)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
		req.Header.Set("X-Tracker-Signature", "sha256="+signBody(secret, body))
		w := httptest.NewRecorder()

		s.webhookAuthMiddleware(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, seen, "the handler must read the same bytes the signature covered")
	})

	t.Run("bare hex without prefix", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
		req.Header.Set("X-Tracker-Signature", signBody(secret, body))
		w := httptest.NewRecorder()

		s.webhookAuthMiddleware(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
		req.Header.Set("X-Tracker-Signature", "sha256="+signBody("othersecret", body))
		w := httptest.NewRecorder()

		s.webhookAuthMiddleware(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid signature"}`, w.Body.String())
	})

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
		w := httptest.NewRecorder()

		s.webhookAuthMiddleware(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/delivery", bytes.NewReader(body))
		req.Header.Set("X-Tracker-Signature", "sha256=zz-not-hex")
		w := httptest.NewRecorder()

		s.webhookAuthMiddleware(okHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	s := New(nil, Config{AdminPasswordHash: string(hash)}, zap.NewNop())
	handler := s.adminAuthMiddleware(okHandler())

	t.Run("correct credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/T1/mock", nil)
		req.SetBasicAuth("admin", "hunter2")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/T1/mock", nil)
		req.SetBasicAuth("admin", "hunter3")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Basic realm="tracklive"`, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("wrong username", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/T1/mock", nil)
		req.SetBasicAuth("root", "hunter2")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/T1/mock", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLogMiddlewarePreservesStatus(t *testing.T) {
	s := New(nil, Config{}, zap.NewNop())

	handler := s.logMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestResponseWriterWrapperDefaultsTo200(t *testing.T) {
	w := httptest.NewRecorder()
	wrw := newResponseWriterWrapper(w)

	_, err := wrw.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, wrw.statusCode)
}
