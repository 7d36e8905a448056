package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/craftnudge/commitlens/pkg/controller/server"
	"github.com/craftnudge/commitlens/pkg/domain/mock"
	"github.com/craftnudge/commitlens/pkg/domain/model"
	"github.com/craftnudge/commitlens/pkg/domain/types"
	"github.com/craftnudge/commitlens/pkg/repository"
)

func TestHealth(t *testing.T) {
	srv := server.New(&mock.UseCaseMock{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Mux().ServeHTTP(w, req)

	gt.V(t, w.Code).Equal(http.StatusOK)
	gt.V(t, w.Body.String()).Equal("ok")
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("returns pipeline status", func(t *testing.T) {
		lastCycle := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
		monitor := &mock.MonitorMock{
			StatusFunc: func(ctx context.Context) (*model.PipelineStatus, error) {
				return &model.PipelineStatus{
					Running:      true,
					LastCycleAt:  &lastCycle,
					PendingCount: 3,
					Counts: map[types.EventState]int{
						types.EventStatePending: 3,
						types.EventStateDone:    7,
					},
				}, nil
			},
		}
		srv := server.New(&mock.UseCaseMock{}, server.WithMonitor(monitor))

		req := httptest.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)

		var st model.PipelineStatus
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		gt.True(t, st.Running)
		gt.V(t, st.PendingCount).Equal(3)
		gt.V(t, st.Counts[types.EventStateDone]).Equal(7)
	})

	t.Run("503 without monitor", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{})

		req := httptest.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusServiceUnavailable)
	})
}

func TestMonitorRunEndpoint(t *testing.T) {
	t.Run("triggers one cycle synchronously", func(t *testing.T) {
		ran := false
		monitor := &mock.MonitorMock{
			RunOnceFunc: func(ctx context.Context) error {
				ran = true
				return nil
			},
		}
		srv := server.New(&mock.UseCaseMock{}, server.WithMonitor(monitor))

		req := httptest.NewRequest("POST", "/api/monitor/run", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.True(t, ran)
	})

	t.Run("503 without monitor", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{})

		req := httptest.NewRequest("POST", "/api/monitor/run", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusServiceUnavailable)
	})
}

func TestRepoEndpoints(t *testing.T) {
	t.Run("lists repositories", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ListRepositoriesFunc: func(ctx context.Context) ([]*model.Repository, error) {
				return []*model.Repository{
					{ID: 1, Owner: "acme", Name: "demo-repo", Language: "Go"},
				}, nil
			},
		}
		srv := server.New(uc)

		req := httptest.NewRequest("GET", "/api/repos/", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.S(t, w.Body.String()).Contains("demo-repo")
	})

	t.Run("lists commits with limit", func(t *testing.T) {
		var gotLimit int
		uc := &mock.UseCaseMock{
			ListRepositoryCommitsFunc: func(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error) {
				gotLimit = limit
				gt.V(t, owner).Equal("acme")
				gt.V(t, name).Equal("demo-repo")
				return []*model.Commit{{ID: 1, SHA: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}}, nil
			},
		}
		srv := server.New(uc)

		req := httptest.NewRequest("GET", "/api/repos/acme/demo-repo/commits?limit=5", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusOK)
		gt.V(t, gotLimit).Equal(5)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		srv := server.New(&mock.UseCaseMock{})

		req := httptest.NewRequest("GET", "/api/repos/acme/demo-repo/commits?limit=zero", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("404 for unknown repository", func(t *testing.T) {
		uc := &mock.UseCaseMock{
			ListRepositoryCommitsFunc: func(ctx context.Context, owner, name string, limit int) ([]*model.Commit, error) {
				return nil, repository.ErrNotFound
			},
		}
		srv := server.New(uc)

		req := httptest.NewRequest("GET", "/api/repos/acme/missing/commits", nil)
		w := httptest.NewRecorder()
		srv.Mux().ServeHTTP(w, req)

		gt.V(t, w.Code).Equal(http.StatusNotFound)
	})
}
