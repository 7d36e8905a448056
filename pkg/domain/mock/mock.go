package mock

import (
	"context"
	"sync"

	"cloud.google.com/go/bigquery"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// AnalyzerMock implements interfaces.Analyzer with a pluggable function and
// records every call for assertions.
type AnalyzerMock struct {
	AnalyzeFunc func(ctx context.Context, input *model.AnalysisInput) (*model.AnalysisOutput, error)

	mu    sync.Mutex
	calls []*model.AnalysisInput
}

var _ interfaces.Analyzer = (*AnalyzerMock)(nil)

func (x *AnalyzerMock) Analyze(ctx context.Context, input *model.AnalysisInput) (*model.AnalysisOutput, error) {
	x.mu.Lock()
	x.calls = append(x.calls, input)
	x.mu.Unlock()

	if x.AnalyzeFunc == nil {
		return &model.AnalysisOutput{Text: "ok", Model: "mock"}, nil
	}
	return x.AnalyzeFunc(ctx, input)
}

// AnalyzeCalls returns the inputs of all Analyze invocations so far.
func (x *AnalyzerMock) AnalyzeCalls() []*model.AnalysisInput {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]*model.AnalysisInput{}, x.calls...)
}

// CodeHostMock implements interfaces.CodeHost.
type CodeHostMock struct {
	GetRepositoryFunc     func(ctx context.Context, owner, name string) (*model.Repository, error)
	ListRecentCommitsFunc func(ctx context.Context, owner, name string, limit int) ([]*model.PollCommit, error)
}

var _ interfaces.CodeHost = (*CodeHostMock)(nil)

func (x *CodeHostMock) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	return x.GetRepositoryFunc(ctx, owner, name)
}

func (x *CodeHostMock) ListRecentCommits(ctx context.Context, owner, name string, limit int) ([]*model.PollCommit, error) {
	return x.ListRecentCommitsFunc(ctx, owner, name, limit)
}

// UseCaseMock implements interfaces.UseCase for controller tests.
type UseCaseMock struct {
	ReceiveWebhookFunc        func(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error)
	ListRepositoriesFunc      func(ctx context.Context) ([]*model.Repository, error)
	ListRepositoryCommitsFunc func(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error)
}

var _ interfaces.UseCase = (*UseCaseMock)(nil)

func (x *UseCaseMock) ReceiveWebhook(ctx context.Context, input *interfaces.ReceiveWebhookInput) (types.EventID, bool, error) {
	return x.ReceiveWebhookFunc(ctx, input)
}

func (x *UseCaseMock) ListRepositories(ctx context.Context) ([]*model.Repository, error) {
	return x.ListRepositoriesFunc(ctx)
}

func (x *UseCaseMock) ListRepositoryCommits(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error) {
	return x.ListRepositoryCommitsFunc(ctx, owner, name, limit)
}

// MonitorMock implements interfaces.Monitor for controller tests.
type MonitorMock struct {
	RunOnceFunc func(ctx context.Context) error
	StatusFunc  func(ctx context.Context) (*model.PipelineStatus, error)
}

var _ interfaces.Monitor = (*MonitorMock)(nil)

func (x *MonitorMock) RunOnce(ctx context.Context) error {
	return x.RunOnceFunc(ctx)
}

func (x *MonitorMock) Status(ctx context.Context) (*model.PipelineStatus, error) {
	return x.StatusFunc(ctx)
}

// BigQueryMock implements interfaces.BigQuery.
type BigQueryMock struct {
	InsertFunc      func(ctx context.Context, schema bigquery.Schema, data any, opts ...interfaces.BigQueryInsertOption) error
	GetMetadataFunc func(ctx context.Context) (*bigquery.TableMetadata, error)
	UpdateTableFunc func(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error
	CreateTableFunc func(ctx context.Context, md *bigquery.TableMetadata) error

	mu      sync.Mutex
	inserts []any
}

var _ interfaces.BigQuery = (*BigQueryMock)(nil)

func (x *BigQueryMock) Insert(ctx context.Context, schema bigquery.Schema, data any, opts ...interfaces.BigQueryInsertOption) error {
	x.mu.Lock()
	x.inserts = append(x.inserts, data)
	x.mu.Unlock()

	if x.InsertFunc == nil {
		return nil
	}
	return x.InsertFunc(ctx, schema, data, opts...)
}

func (x *BigQueryMock) GetMetadata(ctx context.Context) (*bigquery.TableMetadata, error) {
	if x.GetMetadataFunc == nil {
		return nil, nil
	}
	return x.GetMetadataFunc(ctx)
}

func (x *BigQueryMock) UpdateTable(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error {
	if x.UpdateTableFunc == nil {
		return nil
	}
	return x.UpdateTableFunc(ctx, md, eTag)
}

func (x *BigQueryMock) CreateTable(ctx context.Context, md *bigquery.TableMetadata) error {
	if x.CreateTableFunc == nil {
		return nil
	}
	return x.CreateTableFunc(ctx, md)
}

// InsertCalls returns the data values passed to Insert.
func (x *BigQueryMock) InsertCalls() []any {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]any{}, x.inserts...)
}
