package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
	"github.com/craftnudge/commitlens/pkg/utils/logging"
)

// ReceiveWebhook persists a validated webhook delivery as a pending event and
// returns immediately. Normalization, entity writes, and analysis all happen
// later on the dispatcher; the notifier only waits for one durable write.
// A redelivery of a known delivery ID is reported as duplicate without
// creating a second event.
func (x *UseCase) ReceiveWebhook(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
	ev := model.NewEvent(types.EventSourceWebhook, input.WebhookEvent, input.DeliveryID, input.Payload, logging.CtxTime(ctx))

	if err := x.clients.Store().CreateEvent(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrEventExists) {
			logging.From(ctx).Info("duplicate webhook delivery ignored",
				slog.String("delivery_id", input.DeliveryID),
			)
			return "", true, nil
		}
		return "", false, err
	}

	logging.From(ctx).Info("webhook event accepted",
		slog.String("event_id", string(ev.ID)),
		slog.String("webhook_event", input.WebhookEvent),
		slog.String("delivery_id", input.DeliveryID),
	)

	return ev.ID, false, nil
}

// ListRepositories returns all tracked repositories for lookup endpoints.
func (x *UseCase) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	return x.clients.Store().ListRepositories(ctx)
}

// ListRepositoryCommits returns the most recent commits of one repository.
func (x *UseCase) ListRepositoryCommits(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error) {
	repo, err := x.clients.Store().GetRepository(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	return x.clients.Store().ListCommits(ctx, repo.ID, limit)
}
