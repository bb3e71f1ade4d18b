package preference_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/storage/database/inmem"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/tests"
)

var errStorage = errors.New("connection refused")

// brokenRepository fails every call.
type brokenRepository struct {
	preference.Repository
}

func (brokenRepository) Transaction(context.Context, func(repo preference.Repository) error) error {
	return errStorage
}

func (brokenRepository) GetSavedProject(context.Context, int64) (preference.SavedProject, error) {
	return preference.SavedProject{}, errStorage
}

func (brokenRepository) QuerySavedProjects(context.Context, int64) ([]preference.SavedProject, error) {
	return nil, errStorage
}

func (brokenRepository) CountSavedProjects(context.Context, int64) (int, error) {
	return 0, errStorage
}

func (brokenRepository) QueryUserIDs(context.Context) ([]int64, error) {
	return nil, errStorage
}

func newValidator() *validator.Validate {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	preference.InitValidators(validate, translator)
	return validate
}

func newService(t *testing.T, policy preference.TopMovePolicy) (preference.Service, preference.Repository, *test.Hook) {
	conf := testutil.NewConfig()
	conf.Preferences.TopMovePolicy = string(policy)
	logger, hook := testutil.NewLogger(conf)
	repo := inmemdb.NewPreferenceRepository(inmemdb.Open())
	return preference.NewService(repo, newValidator(), logger, conf), repo, hook
}

func strPtr(s string) *string { return &s }

func TestService_Save(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, preference.TopMoveRemove)

	sp, err := svc.Save(ctx, preference.NewSavedProject{UserID: 7, ProjectID: 101, PreferenceDescription: strPtr("  great team  ")})
	require.NoError(t, err)
	assert.Equal(t, 1, sp.RankIndex)
	require.NotNil(t, sp.PreferenceDescription)
	assert.Equal(t, "great team", *sp.PreferenceDescription)

	sp, err = svc.Save(ctx, preference.NewSavedProject{UserID: 7, ProjectID: 102, PreferenceDescription: strPtr("   ")})
	require.NoError(t, err)
	assert.Equal(t, 2, sp.RankIndex)
	assert.Nil(t, sp.PreferenceDescription)

	tests := []struct {
		name     string
		data     preference.NewSavedProject
		wantKind preference.ErrorKind
	}{
		{"duplicate", preference.NewSavedProject{UserID: 7, ProjectID: 101}, preference.KindDuplicate},
		{"missing user", preference.NewSavedProject{ProjectID: 101}, preference.KindValidation},
		{"negative project", preference.NewSavedProject{UserID: 7, ProjectID: -1}, preference.KindValidation},
		{"negative rank", preference.NewSavedProject{UserID: 7, ProjectID: 103, RankIndex: -1}, preference.KindValidation},
		{"rank not next", preference.NewSavedProject{UserID: 7, ProjectID: 103, RankIndex: 1}, preference.KindValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Save(ctx, tc.data)
			assert.Equal(t, tc.wantKind, preference.KindOf(err))
		})
	}

	saved, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t, preference.TopMoveRemove)
	saved := testutil.SaveProjects(t, repo, 7, 101, 102, 103, 104)

	require.NoError(t, svc.Remove(ctx, saved[1].SaveID, 7))
	got, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{saved[0].SaveID: 1, saved[2].SaveID: 2, saved[3].SaveID: 3}, testutil.Ranks(got))

	err = svc.Remove(ctx, saved[1].SaveID, 7)
	assert.Equal(t, preference.KindNotFound, preference.KindOf(err))
	assert.Equal(t, "saved project not found", preference.Message(err))

	err = svc.Remove(ctx, saved[0].SaveID, 8)
	assert.Equal(t, preference.KindNotFound, preference.KindOf(err))

	err = svc.Remove(ctx, 0, 7)
	assert.Equal(t, preference.KindValidation, preference.KindOf(err))
	assert.Equal(t, "save_id: must be a positive integer", preference.Message(err))

	err = svc.Remove(ctx, saved[0].SaveID, -1)
	assert.Equal(t, preference.KindValidation, preference.KindOf(err))

	// no owner check
	require.NoError(t, svc.Remove(ctx, saved[0].SaveID, 0))
}

func TestService_NextRank(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t, preference.TopMoveRemove)

	rank, err := svc.NextRank(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	testutil.SaveProjects(t, repo, 7, 101, 102)
	rank, err = svc.NextRank(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	rank, err = svc.NextRank(ctx, 0)
	assert.Equal(t, preference.KindValidation, preference.KindOf(err))
	assert.Equal(t, 0, rank)
}

func TestService_Reorder(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the refreshed list", func(t *testing.T) {
		svc, repo, _ := newService(t, preference.TopMoveRemove)
		saved := testutil.SaveProjects(t, repo, 7, 101, 102, 103)

		got, outcome, err := svc.Reorder(ctx, preference.MoveSavedProject{SaveID: saved[1].SaveID, UserID: 7, Direction: " UP "})
		require.NoError(t, err)
		assert.Equal(t, preference.MoveSwapped, outcome)
		assert.Equal(t, []int64{102, 101, 103}, testutil.ProjectIDs(got))
		assert.Equal(t, []int{1, 2, 3}, []int{got[0].RankIndex, got[1].RankIndex, got[2].RankIndex})
	})

	t.Run("up from the top removes", func(t *testing.T) {
		svc, repo, hook := newService(t, preference.TopMoveRemove)
		saved := testutil.SaveProjects(t, repo, 7, 101, 102, 103)

		got, outcome, err := svc.Reorder(ctx, preference.MoveSavedProject{SaveID: saved[0].SaveID, UserID: 7, Direction: preference.DirectionUp})
		require.NoError(t, err)
		assert.Equal(t, preference.MoveRemoved, outcome)
		assert.Equal(t, []int64{102, 103}, testutil.ProjectIDs(got))

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.InfoLevel, entry.Level)
		assert.Equal(t, saved[0].SaveID, entry.Data["save_id"])
	})

	t.Run("up from the top rejected", func(t *testing.T) {
		svc, repo, _ := newService(t, preference.TopMoveReject)
		saved := testutil.SaveProjects(t, repo, 7, 101, 102, 103)

		_, _, err := svc.Reorder(ctx, preference.MoveSavedProject{SaveID: saved[0].SaveID, UserID: 7, Direction: preference.DirectionUp})
		assert.Equal(t, preference.KindValidation, preference.KindOf(err))
		assert.Equal(t, "direction: the most preferred project cannot move up", preference.Message(err))
	})

	t.Run("down from the bottom", func(t *testing.T) {
		svc, repo, _ := newService(t, preference.TopMoveRemove)
		saved := testutil.SaveProjects(t, repo, 7, 101, 102, 103)

		got, outcome, err := svc.Reorder(ctx, preference.MoveSavedProject{SaveID: saved[2].SaveID, UserID: 7, Direction: preference.DirectionDown})
		require.NoError(t, err)
		assert.Equal(t, preference.MoveUnchanged, outcome)
		assert.Equal(t, []int64{101, 102, 103}, testutil.ProjectIDs(got))
	})

	t.Run("invalid", func(t *testing.T) {
		svc, repo, _ := newService(t, preference.TopMoveRemove)
		saved := testutil.SaveProjects(t, repo, 7, 101)

		_, _, err := svc.Reorder(ctx, preference.MoveSavedProject{SaveID: saved[0].SaveID, UserID: 7, Direction: "left"})
		assert.Equal(t, preference.KindValidation, preference.KindOf(err))

		_, _, err = svc.Reorder(ctx, preference.MoveSavedProject{SaveID: 404, UserID: 7, Direction: preference.DirectionDown})
		assert.Equal(t, preference.KindNotFound, preference.KindOf(err))
	})
}

func TestService_UpdateDescription(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t, preference.TopMoveRemove)
	saved := testutil.SaveProjects(t, repo, 7, 101)

	sp, err := svc.UpdateDescription(ctx, saved[0].SaveID, 7, preference.UpdateSavedProject{PreferenceDescription: strPtr(" I know Go ")})
	require.NoError(t, err)
	require.NotNil(t, sp.PreferenceDescription)
	assert.Equal(t, "I know Go", *sp.PreferenceDescription)
	assert.Equal(t, 1, sp.RankIndex)

	got, err := svc.Get(ctx, saved[0].SaveID, 7)
	require.NoError(t, err)
	assert.Equal(t, sp, got)

	_, err = svc.UpdateDescription(ctx, saved[0].SaveID, 8, preference.UpdateSavedProject{})
	assert.Equal(t, preference.KindNotFound, preference.KindOf(err))

	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.UpdateDescription(ctx, saved[0].SaveID, 7, preference.UpdateSavedProject{PreferenceDescription: strPtr(string(long))})
	assert.Equal(t, preference.KindValidation, preference.KindOf(err))
}

func TestService_CheckAndRepair(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService(t, preference.TopMoveRemove)
	testutil.SaveProjects(t, repo, 7, 101, 102)
	testutil.CreateSavedProject(t, repo, 8, 101, 1)
	testutil.CreateSavedProject(t, repo, 8, 102, 3)

	rep, err := svc.Check(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, preference.RankReport{UserID: 8, Count: 2, Gaps: []int{2}, OutOfRange: []int{3}}, rep)

	reports, err := svc.CheckAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(8), reports[0].UserID)

	changed, err := svc.Repair(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	reports, err = svc.CheckAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestService_StorageFailures(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig()
	logger, hook := testutil.NewLogger(conf)
	svc := preference.NewService(brokenRepository{}, newValidator(), logger, conf)

	_, err := svc.List(ctx, 7)
	assert.Equal(t, preference.KindStorage, preference.KindOf(err))
	assert.Equal(t, "something went wrong, please try again later", preference.Message(err))
	assert.True(t, errors.Is(err, errStorage))

	rank, err := svc.NextRank(ctx, 7)
	assert.Equal(t, preference.KindStorage, preference.KindOf(err))
	assert.Equal(t, 0, rank)

	_, err = svc.Save(ctx, preference.NewSavedProject{UserID: 7, ProjectID: 101})
	assert.Equal(t, preference.KindStorage, preference.KindOf(err))

	err = svc.Remove(ctx, 1, 7)
	assert.Equal(t, preference.KindStorage, preference.KindOf(err))

	_, err = svc.CheckAll(ctx)
	assert.Equal(t, preference.KindStorage, preference.KindOf(err))

	entries := hook.AllEntries()
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, logrus.ErrorLevel, e.Level)
		loggedErr, ok := e.Data[logrus.ErrorKey].(error)
		require.True(t, ok)
		assert.True(t, errors.Is(loggedErr, errStorage))
	}
}
