package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

func TestCommitValidate(t *testing.T) {
	valid := model.Commit{
		SHA: types.CommitSHA("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
	}
	gt.NoError(t, valid.Validate())

	t.Run("rejects short SHA", func(t *testing.T) {
		c := model.Commit{SHA: types.CommitSHA("abc123")}
		gt.Error(t, c.Validate())
	})

	t.Run("rejects uppercase SHA", func(t *testing.T) {
		c := model.Commit{SHA: types.CommitSHA("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")}
		gt.Error(t, c.Validate())
	})

	t.Run("rejects empty SHA", func(t *testing.T) {
		c := model.Commit{}
		gt.Error(t, c.Validate())
	})
}

func TestChangedPaths(t *testing.T) {
	c := model.Commit{
		SHA: types.CommitSHA("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Files: []model.FileChange{
			{Path: "a.go", Kind: types.ChangeKindAdded},
			{Path: "b.go", Kind: types.ChangeKindModified},
			{Path: "c.go", Kind: types.ChangeKindRemoved},
		},
	}

	paths := c.ChangedPaths()
	gt.A(t, paths).Length(3)
	gt.V(t, paths[0]).Equal("a.go")
	gt.V(t, paths[2]).Equal("c.go")
}

func TestRepositoryFullName(t *testing.T) {
	repo := model.Repository{Owner: "acme", Name: "demo-repo"}
	gt.V(t, repo.FullName()).Equal("acme/demo-repo")
}
