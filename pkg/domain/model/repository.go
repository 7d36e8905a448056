package model

import (
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Repository represents a GitHub repository tracked by the pipeline. It is
// created on the first sighting of any commit belonging to it and is never
// deleted by the pipeline.
type Repository struct {
	ID          types.RepoID
	Owner       string
	Name        string
	Description string
	Language    string
	Private     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (x *Repository) Validate() error {
	if x.Owner == "" {
		return goerr.Wrap(types.ErrValidationFailed, "repository owner is empty")
	}
	if x.Name == "" {
		return goerr.Wrap(types.ErrValidationFailed, "repository name is empty")
	}
	return nil
}

// FullName returns the "owner/name" form used in logs and poll payloads.
func (x *Repository) FullName() string {
	return x.Owner + "/" + x.Name
}
