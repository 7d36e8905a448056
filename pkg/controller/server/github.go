package server

import (
	"log/slog"
	"net/http"

	"github.com/google/go-github/v53/github"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/utils/errutil"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// handleGitHubWebhook validates the delivery signature and persists push
// events as pending pipeline work. The handler acknowledges only after the
// event row is durable, so GitHub's redelivery covers any write failure.
// Signature validation happens before the body is trusted in any way; a bad
// signature is 401 with no side effects.
func handleGitHubWebhook(uc interfaces.UseCase, secret types.WebhookSecret, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := github.ValidatePayload(r, []byte(secret))
	if err != nil {
		logging.From(ctx).Warn("webhook signature validation failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	webhookEvent := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)

	// Only push deliveries carry commits. Everything else is acknowledged so
	// GitHub does not retry, but produces no pipeline work.
	if webhookEvent != "push" {
		logging.From(ctx).Debug("ignoring webhook event",
			slog.String("webhook_event", webhookEvent),
			slog.String("delivery_id", deliveryID),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "event ignored"})
		return
	}

	id, duplicate, err := uc.ReceiveWebhook(ctx, &interfaces.ReceiveWebhookInput{
		WebhookEvent: webhookEvent,
		DeliveryID:   deliveryID,
		Payload:      payload,
	})
	if err != nil {
		// Refusing the delivery makes GitHub redeliver it later, which is the
		// recovery path for a temporarily unavailable store.
		errutil.HandleError(ctx, "fail to persist webhook event", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "event not persisted"})
		return
	}

	if duplicate {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "duplicate delivery"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "event_id": string(id)})
}
