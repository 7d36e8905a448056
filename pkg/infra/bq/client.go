package bq

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"

	"github.com/craftnudge/commitlens/pkg/domain/interfaces"
)

// Client writes analysis records to a BigQuery table. It implements
// interfaces.BigQuery.
type Client struct {
	bqClient *bigquery.Client
	dataset  string
	tableID  string
}

var _ interfaces.BigQuery = (*Client)(nil)

func New(ctx context.Context, projectID, datasetID, tableID string) (*Client, error) {
	bqClient, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client", goerr.V("projectID", projectID))
	}

	return &Client{
		bqClient: bqClient,
		dataset:  datasetID,
		tableID:  tableID,
	}, nil
}

func (x *Client) table() *bigquery.Table {
	return x.bqClient.Dataset(x.dataset).Table(x.tableID)
}

// GetMetadata returns the table metadata, or nil when the table does not
// exist yet.
func (x *Client) GetMetadata(ctx context.Context) (*bigquery.TableMetadata, error) {
	md, err := x.table().Metadata(ctx)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get table metadata",
			goerr.V("dataset", x.dataset),
			goerr.V("table", x.tableID),
		)
	}
	return md, nil
}

func (x *Client) CreateTable(ctx context.Context, md *bigquery.TableMetadata) error {
	if err := x.table().Create(ctx, md); err != nil {
		return goerr.Wrap(err, "failed to create table",
			goerr.V("dataset", x.dataset),
			goerr.V("table", x.tableID),
		)
	}
	return nil
}

func (x *Client) UpdateTable(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error {
	if _, err := x.table().Update(ctx, md, eTag); err != nil {
		return goerr.Wrap(err, "failed to update table",
			goerr.V("dataset", x.dataset),
			goerr.V("table", x.tableID),
		)
	}
	return nil
}

func (x *Client) Insert(ctx context.Context, schema bigquery.Schema, data any, opts ...interfaces.BigQueryInsertOption) error {
	cfg := &interfaces.BigQueryInsertConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	saver := &bigquery.StructSaver{
		Schema: schema,
		Struct: data,
	}

	inserter := x.table().Inserter()
	if err := inserter.Put(ctx, saver); err != nil {
		if cfg.EnableRetry {
			// Streaming inserts can race a schema update; one more attempt is
			// enough once the schema has propagated.
			if retryErr := inserter.Put(ctx, saver); retryErr == nil {
				return nil
			}
		}
		return goerr.Wrap(err, "failed to insert row",
			goerr.V("dataset", x.dataset),
			goerr.V("table", x.tableID),
		)
	}

	return nil
}
