package server_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/controller/server"
	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/mock"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
)

const testSecret = "test-webhook-secret"

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(event, deliveryID, secret string, payload []byte) *http.Request {
	req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", deliveryID)
	req.Header.Set("X-Hub-Signature-256", signPayload(secret, payload))
	return req
}

func TestGitHubWebhook(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main","commits":[]}`)

	t.Run("rejects invalid signature without side effects", func(t *testing.T) {
		called := false
		uc := &mock.UseCaseMock{
			ReceiveWebhookFunc: func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
				called = true
				return "", false, nil
			},
		}
		srv := server.New(uc, server.WithWebhookSecret(testSecret))

		req := newWebhookRequest("push", "d-1", "wrong-secret", payload)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusUnauthorized)
		gt.False(t, called)
	})

	t.Run("accepts valid push delivery with 202", func(t *testing.T) {
		var received *interfaces.ReceiveWebhookInput
		uc := &mock.UseCaseMock{
			ReceiveWebhookFunc: func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
				received = input
				return types.EventID("ev-1"), false, nil
			},
		}
		srv := server.New(uc, server.WithWebhookSecret(testSecret))

		req := newWebhookRequest("push", "d-2", testSecret, payload)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusAccepted)
		gt.S(t, w.Body.String()).Contains("ev-1")
		gt.V(t, received.WebhookEvent).Equal("push")
		gt.V(t, received.DeliveryID).Equal("d-2")
		gt.V(t, string(received.Payload)).Equal(string(payload))
	})

	t.Run("acknowledges duplicate delivery with 200", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ReceiveWebhookFunc: func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
				return "", true, nil
			},
		}
		srv := server.New(uc, server.WithWebhookSecret(testSecret))

		req := newWebhookRequest("push", "d-3", testSecret, payload)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.S(t, w.Body.String()).Contains("duplicate delivery")
	})

	t.Run("ignores non-push events with 200", func(t *testing.T) {
		called := false
		uc := &mock.UseCaseMock{
			ReceiveWebhookFunc: func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
				called = true
				return "", false, nil
			},
		}
		srv := server.New(uc, server.WithWebhookSecret(testSecret))

		req := newWebhookRequest("ping", "d-4", testSecret, payload)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.S(t, w.Body.String()).Contains("ignored")
		gt.False(t, called)
	})

	t.Run("refuses delivery when store is unavailable", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ReceiveWebhookFunc: func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
				return "", false, repository.ErrUnavailable
			},
		}
		srv := server.New(uc, server.WithWebhookSecret(testSecret))

		req := newWebhookRequest("push", "d-5", testSecret, payload)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		// GitHub retries on 5xx, which is the recovery path for an outage.
		gt.V(t, w.Code).Equal(http.StatusInternalServerError)
	})
}
