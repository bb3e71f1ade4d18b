package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Capstone-Portal-Project/capstone-portal-project-sub000/apps/api/echo"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/tests"
)

func savedPath(userID int64, rest ...interface{}) string {
	path := fmt.Sprintf("/v1/users/%d/saved-projects", userID)
	for _, r := range rest {
		path += fmt.Sprintf("/%v", r)
	}
	return path
}

func Test_preferenceApi_list(t *testing.T) {
	app := setup(t)
	saved := testutil.SaveProjects(t, app.repo, 7, 101, 102)
	testutil.SaveProjects(t, app.repo, 8, 103)

	studentToken := getToken(t, app.conf, 7)
	otherToken := getToken(t, app.conf, 8)
	adminToken := getToken(t, app.conf, 1, RoleAdmin)

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     savedPath(7),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "bad token",
			method:   http.MethodGet,
			path:     savedPath(7),
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "invalid or expired jwt"}),
		},
		{
			name:     "someone else's",
			method:   http.MethodGet,
			path:     savedPath(7),
			token:    otherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "not found"}),
		},
		{
			name:     "invalid user ID",
			method:   http.MethodGet,
			path:     "/v1/users/abc/saved-projects",
			token:    studentToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{
				Error:   true,
				Message: "user_id: must be a positive integer",
				Fields:  map[string]string{"user_id": "must be a positive integer"},
			}),
		},
		{
			name:     "own",
			method:   http.MethodGet,
			path:     savedPath(7),
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SavedProjectListResponse{SavedProjects: saved}),
		},
		{
			name:     "admin",
			method:   http.MethodGet,
			path:     savedPath(7),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SavedProjectListResponse{SavedProjects: saved}),
		},
		{
			name:     "empty",
			method:   http.MethodGet,
			path:     savedPath(9),
			token:    getToken(t, app.conf, 9),
			wantCode: http.StatusOK,
			wantData: []byte(`{"error":false,"saved_projects":[]}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_preferenceApi_create(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, 7)

	tests := []httpTest{
		{
			name:     "first",
			method:   http.MethodPost,
			path:     savedPath(7),
			body:     []byte(`{"project_id":101,"preference_description":"I like the stack"}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"error":false,"save_id":1}`),
		},
		{
			name:     "second ignores the body's user",
			method:   http.MethodPost,
			path:     savedPath(7),
			body:     []byte(`{"user_id":8,"project_id":102,"rank_index":2}`),
			token:    token,
			wantCode: http.StatusCreated,
			wantData: []byte(`{"error":false,"save_id":2}`),
		},
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     savedPath(7),
			body:     []byte(`{"project_id":101}`),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "project already saved"}),
		},
		{
			name:     "rank not next",
			method:   http.MethodPost,
			path:     savedPath(7),
			body:     []byte(`{"project_id":103,"rank_index":1}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{
				Error:   true,
				Message: "rank_index: rank_index must be 3",
				Fields:  map[string]string{"rank_index": "rank_index must be 3"},
			}),
		},
		{
			name:     "malformed",
			method:   http.MethodPost,
			path:     savedPath(7),
			body:     []byte(`{"project_id":"abc"`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}

	t.Run("invalid project", func(t *testing.T) {
		rec := app.run(t, httpTest{method: http.MethodPost, path: savedPath(7), body: []byte(`{"project_id":0}`), token: token})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Error)
		assert.Contains(t, resp.Fields, "project_id")
	})

	saved, err := app.repo.QuerySavedProjects(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, testutil.ProjectIDs(saved))
	require.NotNil(t, saved[0].PreferenceDescription)
	assert.Equal(t, "I like the stack", *saved[0].PreferenceDescription)
}

type failingNextRank struct {
	preference.Service
}

func (failingNextRank) NextRank(context.Context, int64) (int, error) {
	return 0, errors.New("pq: connection refused")
}

func Test_preferenceApi_nextRank(t *testing.T) {
	app := setup(t)
	testutil.SaveProjects(t, app.repo, 7, 101, 102)
	token := getToken(t, app.conf, 7)

	tt := httpTest{
		method:   http.MethodGet,
		path:     savedPath(7, "next-rank"),
		token:    token,
		wantCode: http.StatusOK,
		wantData: []byte(`{"error":false,"rank_index":3}`),
	}
	checkCodeAndData(t, tt, app.run(t, tt))

	broken := setup(t, func(svc preference.Service) preference.Service { return failingNextRank{svc} })
	tt = httpTest{
		method:   http.MethodGet,
		path:     savedPath(7, "next-rank"),
		token:    getToken(t, broken.conf, 7),
		wantCode: http.StatusInternalServerError,
		wantData: []byte(`{"error":true,"message":"something went wrong, please try again later","rank_index":0}`),
	}
	checkCodeAndData(t, tt, broken.run(t, tt))
}

func Test_preferenceApi_move(t *testing.T) {
	app := setup(t)
	saved := testutil.SaveProjects(t, app.repo, 7, 101, 102, 103)
	token := getToken(t, app.conf, 7)

	at := func(sp preference.SavedProject, rank int) preference.SavedProject {
		sp.RankIndex = rank
		return sp
	}

	tests := []httpTest{
		{
			name:     "up",
			method:   http.MethodPost,
			path:     savedPath(7, saved[1].SaveID, "move"),
			body:     []byte(`{"direction":"up"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MoveResponse{
				Outcome:       "swapped",
				SavedProjects: []preference.SavedProject{at(saved[1], 1), at(saved[0], 2), saved[2]},
			}),
		},
		{
			name:     "down from the bottom",
			method:   http.MethodPost,
			path:     savedPath(7, saved[2].SaveID, "move"),
			body:     []byte(`{"direction":"down"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MoveResponse{
				Outcome:       "unchanged",
				SavedProjects: []preference.SavedProject{at(saved[1], 1), at(saved[0], 2), saved[2]},
			}),
		},
		{
			name:     "up from the top",
			method:   http.MethodPost,
			path:     savedPath(7, saved[1].SaveID, "move"),
			body:     []byte(`{"direction":"up"}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MoveResponse{
				Outcome:       "removed",
				SavedProjects: []preference.SavedProject{at(saved[0], 1), at(saved[2], 2)},
			}),
		},
		{
			name:     "invalid direction",
			method:   http.MethodPost,
			path:     savedPath(7, saved[0].SaveID, "move"),
			body:     []byte(`{"direction":"sideways"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{
				Error:   true,
				Message: "direction must be one of: up, down",
				Fields:  map[string]string{"direction": "direction must be one of: up, down"},
			}),
		},
		{
			name:     "missing",
			method:   http.MethodPost,
			path:     savedPath(7, saved[1].SaveID, "move"),
			body:     []byte(`{"direction":"down"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "saved project not found"}),
		},
		{
			name:     "invalid save ID",
			method:   http.MethodPost,
			path:     savedPath(7, "first", "move"),
			body:     []byte(`{"direction":"down"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_preferenceApi_destroy(t *testing.T) {
	app := setup(t)
	saved := testutil.SaveProjects(t, app.repo, 7, 101, 102, 103, 104)
	others := testutil.SaveProjects(t, app.repo, 8, 101)
	token := getToken(t, app.conf, 7)

	tests := []httpTest{
		{
			name:     "own",
			method:   http.MethodDelete,
			path:     savedPath(7, saved[1].SaveID),
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"error":false}`),
		},
		{
			name:     "again",
			method:   http.MethodDelete,
			path:     savedPath(7, saved[1].SaveID),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "saved project not found"}),
		},
		{
			name:     "someone else's through own path",
			method:   http.MethodDelete,
			path:     savedPath(7, others[0].SaveID),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "saved project not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}

	got, err := app.repo.QuerySavedProjects(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{saved[0].SaveID: 1, saved[2].SaveID: 2, saved[3].SaveID: 3}, testutil.Ranks(got))

	count, err := app.repo.CountSavedProjects(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_preferenceApi_retrieveAndUpdate(t *testing.T) {
	app := setup(t)
	saved := testutil.SaveProjects(t, app.repo, 7, 101, 102)
	token := getToken(t, app.conf, 7)

	desc := "great mentors"
	updated := saved[1]
	updated.PreferenceDescription = &desc

	tests := []httpTest{
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     savedPath(7, saved[1].SaveID),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SavedProjectResponse{SavedProject: saved[1]}),
		},
		{
			name:     "update",
			method:   http.MethodPatch,
			path:     savedPath(7, saved[1].SaveID),
			body:     []byte(`{"preference_description":"  great mentors "}`),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SavedProjectResponse{SavedProject: updated}),
		},
		{
			name:     "retrieve updated",
			method:   http.MethodGet,
			path:     savedPath(7, saved[1].SaveID),
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SavedProjectResponse{SavedProject: updated}),
		},
		{
			name:     "retrieve missing",
			method:   http.MethodGet,
			path:     savedPath(7, 404),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "saved project not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}

func Test_preferenceApi_maintenance(t *testing.T) {
	app := setup(t)
	testutil.SaveProjects(t, app.repo, 7, 101, 102)
	testutil.CreateSavedProject(t, app.repo, 8, 101, 2)
	adminToken := getToken(t, app.conf, 1, RoleAdmin)
	studentToken := getToken(t, app.conf, 8)

	tests := []httpTest{
		{
			name:     "reports need admin",
			method:   http.MethodGet,
			path:     "/v1/saved-projects/rank-reports",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, ErrorResponse{Error: true, Message: "permission denied"}),
		},
		{
			name:     "reports",
			method:   http.MethodGet,
			path:     "/v1/saved-projects/rank-reports",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, RankReportsResponse{Reports: []preference.RankReport{
				{UserID: 8, Count: 1, Gaps: []int{1}, OutOfRange: []int{2}},
			}}),
		},
		{
			name:     "repair needs admin",
			method:   http.MethodPost,
			path:     savedPath(8, "repair"),
			token:    studentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "repair",
			method:   http.MethodPost,
			path:     savedPath(8, "repair"),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"error":false,"changed":1}`),
		},
		{
			name:     "reports after repair",
			method:   http.MethodGet,
			path:     "/v1/saved-projects/rank-reports",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"error":false,"reports":[]}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.run(t, tt))
		})
	}
}
