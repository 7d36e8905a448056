package interfaces

//go:generate moq -out ../mock/infra.go -pkg mock . Analyzer CodeHost BigQuery

import (
	"context"

	"cloud.google.com/go/bigquery"

	"github.com/craftnudge/commitlens/pkg/domain/model"
)

// Analyzer is the analysis engine boundary: a black-box capability that turns
// commit metadata and a diff summary into a textual analysis. Calls may be
// slow; callers impose their own timeout and classify timeouts as retryable
// (types.ErrAnalysisRetryable) or permanent (types.ErrAnalysisFailed).
type Analyzer interface {
	Analyze(ctx context.Context, input *model.AnalysisInput) (*model.AnalysisOutput, error)
}

// CodeHost reads commit history directly from the upstream source. Used by the
// reconciliation poller to catch notifications that were never delivered.
type CodeHost interface {
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]*model.PollCommit, error)
}

type BigQueryInsertOption func(*BigQueryInsertConfig)

type BigQueryInsertConfig struct {
	EnableRetry bool
}

func WithRetry(retry bool) BigQueryInsertOption {
	return func(c *BigQueryInsertConfig) {
		c.EnableRetry = retry
	}
}

// BigQuery is the optional analytics sink for analysis records.
type BigQuery interface {
	Insert(ctx context.Context, schema bigquery.Schema, data any, opts ...BigQueryInsertOption) error

	GetMetadata(ctx context.Context) (*bigquery.TableMetadata, error)
	UpdateTable(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error
	CreateTable(ctx context.Context, md *bigquery.TableMetadata) error
}
