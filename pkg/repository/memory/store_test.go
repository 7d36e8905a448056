package memory_test

import (
	"testing"

	"github.com/craftnudge/commitlens/pkg/repository/memory"
	"github.com/craftnudge/commitlens/pkg/repository/testhelper"
)

func TestMemoryStore(t *testing.T) {
	store := memory.New()
	testhelper.TestAll(t, store)
}
