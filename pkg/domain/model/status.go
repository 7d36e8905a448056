package model

import (
	"time"

	"github.com/craftnudge/commitlens/pkg/domain/types"
)

// PipelineStatus is a point-in-time snapshot of the ingestion pipeline,
// served by the status endpoint.
type PipelineStatus struct {
	Running              bool                     `json:"running"`
	LastCycleAt          *time.Time               `json:"last_cycle_at,omitempty"`
	PendingCount         int                      `json:"pending_count"`
	FailedPermanentCount int                      `json:"failed_permanent_count"`
	Counts               map[types.EventState]int `json:"counts"`
}
