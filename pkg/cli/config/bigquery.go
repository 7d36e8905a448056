package config

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/craftnudge/commitlens/pkg/infra/bq"
)

// BigQuery configures the optional analytics export. Export is disabled when
// the project ID is empty.
type BigQuery struct {
	projectID string
	datasetID string
	tableID   string
}

func (x *BigQuery) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bigquery-project-id",
			Usage:       "BigQuery project ID (optional)",
			Category:    "BigQuery",
			Destination: &x.projectID,
			Sources:     cli.EnvVars("COMMITLENS_BIGQUERY_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset-id",
			Usage:       "BigQuery dataset ID",
			Category:    "BigQuery",
			Value:       "commitlens",
			Destination: &x.datasetID,
			Sources:     cli.EnvVars("COMMITLENS_BIGQUERY_DATASET_ID"),
		},
		&cli.StringFlag{
			Name:        "bigquery-table-id",
			Usage:       "BigQuery table ID",
			Category:    "BigQuery",
			Value:       "analyses",
			Destination: &x.tableID,
			Sources:     cli.EnvVars("COMMITLENS_BIGQUERY_TABLE_ID"),
		},
	}
}

func (x *BigQuery) NewClient(ctx context.Context) (*bq.Client, error) {
	if x.projectID == "" {
		return nil, nil
	}
	return bq.New(ctx, x.projectID, x.datasetID, x.tableID)
}

func (x *BigQuery) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("ProjectID", x.projectID),
		slog.String("DatasetID", x.datasetID),
		slog.String("TableID", x.tableID),
	)
}
