package usecase_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/domain/mock"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/infra"
	"github.com/craftnudge/commitlens/pkg/usecase"
)

func TestExportAnalysis(t *testing.T) {
	ctx := context.Background()

	repo := &model.Repository{Owner: "acme", Name: "demo-repo"}
	result := &model.AnalysisResult{
		SHA:       types.CommitSHA(testSHA1),
		Agent:     types.AgentCodeAnalysis,
		Status:    types.AnalysisStatusOK,
		Text:      "no issues found",
		Model:     "codellama:7b",
		CreatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	t.Run("creates table on first export", func(t *testing.T) {
		bq := &mock.BigQueryMock{}
		var created bool
		bq.GetMetadataFunc = func(ctx context.Context) (*bigquery.TableMetadata, error) {
			return nil, nil
		}
		bq.CreateTableFunc = func(ctx context.Context, md *bigquery.TableMetadata) error {
			created = true
			gt.True(t, len(md.Schema) > 0)
			return nil
		}

		uc := usecase.New(infra.New(infra.WithBigQuery(bq)))
		gt.NoError(t, uc.ExportAnalysis(ctx, repo, result))

		gt.True(t, created)
		inserts := bq.InsertCalls()
		gt.A(t, inserts).Length(1)

		record := gt.Cast[*model.AnalysisRecord](t, inserts[0])
		gt.V(t, record.Repo).Equal("acme/demo-repo")
		gt.V(t, record.SHA).Equal(types.CommitSHA(testSHA1))
		gt.V(t, record.Timestamp).Equal(result.CreatedAt.UnixMicro())
	})

	t.Run("widens schema when table exists with different schema", func(t *testing.T) {
		bq := &mock.BigQueryMock{}
		bq.GetMetadataFunc = func(ctx context.Context) (*bigquery.TableMetadata, error) {
			return &bigquery.TableMetadata{
				Schema: bigquery.Schema{
					{Name: "repo", Type: bigquery.StringFieldType},
				},
				ETag: "etag-1",
			}, nil
		}
		var updated bool
		bq.UpdateTableFunc = func(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error {
			updated = true
			gt.V(t, eTag).Equal("etag-1")
			return nil
		}

		uc := usecase.New(infra.New(infra.WithBigQuery(bq)))
		gt.NoError(t, uc.ExportAnalysis(ctx, repo, result))

		gt.True(t, updated)
		gt.A(t, bq.InsertCalls()).Length(1)
	})

	t.Run("no-op without BigQuery", func(t *testing.T) {
		uc := usecase.New(infra.New())
		gt.NoError(t, uc.ExportAnalysis(ctx, repo, result))
	})
}
