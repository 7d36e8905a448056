package model

import (
	"regexp"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/craftnudge/commitlens/pkg/domain/types"
)

var ptnValidCommitSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// FileChange describes one changed file within a commit. Order within a
// commit's file list follows the upstream payload.
type FileChange struct {
	Path string
	Kind types.ChangeKind
}

// Commit is the canonical record of one source-control change, owned by
// exactly one Repository. (SHA, RepoID) is unique.
type Commit struct {
	ID          types.CommitID
	RepoID      types.RepoID
	SHA         types.CommitSHA
	Author      string
	AuthorEmail string
	Message     string
	Branch      types.BranchName
	CommittedAt time.Time
	Files       []FileChange
	Metadata    map[string]string
	CreatedAt   time.Time
}

func (x *Commit) Validate() error {
	if !ptnValidCommitSHA.MatchString(string(x.SHA)) {
		return goerr.Wrap(types.ErrValidationFailed, "invalid commit SHA", goerr.V("sha", x.SHA))
	}
	return nil
}

// ChangedPaths returns the file paths in payload order, used as the diff
// summary input for analyzers.
func (x *Commit) ChangedPaths() []string {
	paths := make([]string, 0, len(x.Files))
	for _, f := range x.Files {
		paths = append(paths, f.Path)
	}
	return paths
}
