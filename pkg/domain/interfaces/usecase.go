package interfaces

//go:generate moq -out ../mock/usecase.go -pkg mock . UseCase

import (
	"context"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// ReceiveWebhookInput carries a validated webhook delivery into the ingestion
// pipeline.
type ReceiveWebhookInput struct {
	WebhookEvent string
	DeliveryID   string
	Payload      []byte
}

// UseCase is the surface the HTTP controller depends on.
type UseCase interface {
	// ReceiveWebhook persists a pending event and returns immediately. It
	// performs no normalization and no analysis. Duplicate delivery IDs are
	// accepted without creating a second event (duplicate=true).
	ReceiveWebhook(ctx context.Context, input *ReceiveWebhookInput) (id types.EventID, duplicate bool, err error)

	ListRepositories(ctx context.Context) ([]*model.Repository, error)
	ListRepositoryCommits(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error)
}

// Monitor is the pipeline lifecycle surface exposed to operators via the
// HTTP controller.
type Monitor interface {
	// RunOnce executes one reclaim-reconcile-drain cycle synchronously.
	RunOnce(ctx context.Context) error
	Status(ctx context.Context) (*model.PipelineStatus, error)
}
