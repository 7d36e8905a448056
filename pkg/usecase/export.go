package usecase

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/bqs"
	"github.com/m-mizutani/goerr/v2"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
	"github.com/craftnudge/commitlens/pkg/domain/model"
)

// ExportAnalysis streams one analysis result to the analytics table. It is a
// no-op when BigQuery is not configured. The table schema is inferred from
// the record and widened in place when new fields appear.
func (x *UseCase) ExportAnalysis(ctx context.Context, repo *model.Repository, result *model.AnalysisResult) error {
	bq := x.clients.BigQuery()
	if bq == nil {
		return nil
	}

	record := &model.AnalysisRecord{
		Repo:      repo.FullName(),
		SHA:       result.SHA,
		Agent:     result.Agent,
		Status:    result.Status,
		Text:      result.Text,
		Model:     result.Model,
		Timestamp: result.CreatedAt.UnixMicro(),
	}

	schema, schemaUpdated, err := createOrUpdateAnalyticsTable(ctx, bq, record)
	if err != nil {
		return err
	}

	if err := bq.Insert(ctx, schema, record, interfaces.WithRetry(schemaUpdated)); err != nil {
		return goerr.Wrap(err, "failed to insert analysis record")
	}

	return nil
}

func createOrUpdateAnalyticsTable(ctx context.Context, bq interfaces.BigQuery, record *model.AnalysisRecord) (schema bigquery.Schema, schemaUpdated bool, err error) {
	schema, err = bqs.Infer(record)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to infer analysis record schema")
	}

	metaData, err := bq.GetMetadata(ctx)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to get analytics table metadata")
	}
	if metaData == nil {
		if err := bq.CreateTable(ctx, &bigquery.TableMetadata{
			Schema: schema,
		}); err != nil {
			return nil, false, goerr.Wrap(err, "failed to create analytics table")
		}

		return schema, false, nil
	}

	if bqs.Equal(metaData.Schema, schema) {
		return schema, false, nil
	}

	mergedSchema, err := bqs.Merge(metaData.Schema, schema)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to merge analytics table schema")
	}
	if err := bq.UpdateTable(ctx, bigquery.TableMetadataToUpdate{
		Schema: mergedSchema,
	}, metaData.ETag); err != nil {
		return nil, false, goerr.Wrap(err, "failed to update analytics table")
	}

	return mergedSchema, true, nil
}
