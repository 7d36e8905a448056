package postgres_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/repository/postgres"
	"github.com/craftnudge/commitlens/pkg/repository/testhelper"
	"github.com/craftnudge/commitlens/pkg/utils/testutil"
)

func TestPostgresStore(t *testing.T) {
	databaseURL := testutil.GetEnvOrSkip(t, "TEST_POSTGRES_URL")

	ctx := context.Background()
	store, err := postgres.New(ctx, databaseURL)
	gt.NoError(t, err)

	testhelper.TestAll(t, store)
}
