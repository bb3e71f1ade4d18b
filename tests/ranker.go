package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

// SlowRepository widens the window between the reads and the writes of compound operations.
type SlowRepository struct {
	preference.Repository
	Delay time.Duration
}

func (repo SlowRepository) Transaction(ctx context.Context, fn func(repo preference.Repository) error) error {
	return repo.Repository.Transaction(ctx, func(tx preference.Repository) error {
		return fn(SlowRepository{Repository: tx, Delay: repo.Delay})
	})
}

func (repo SlowRepository) GetSavedProject(ctx context.Context, saveID int64) (preference.SavedProject, error) {
	time.Sleep(repo.Delay)
	return repo.Repository.GetSavedProject(ctx, saveID)
}

func (repo SlowRepository) ShiftRanksDown(ctx context.Context, userID int64, after int) (int, error) {
	time.Sleep(repo.Delay)
	return repo.Repository.ShiftRanksDown(ctx, userID, after)
}

// AppendProjects saves projectIDs for userID through rk, in order.
func AppendProjects(t *testing.T, rk *preference.Ranker, userID int64, projectIDs ...int64) []preference.SavedProject {
	t.Helper()
	saved := make([]preference.SavedProject, 0, len(projectIDs))
	for _, projectID := range projectIDs {
		sp, err := rk.Append(context.Background(), preference.SavedProject{UserID: userID, ProjectID: projectID})
		require.NoError(t, err)
		saved = append(saved, sp)
	}
	return saved
}

// AssertContiguous fails t unless userID's ranks are 1..N, then returns the saved projects in rank order.
func AssertContiguous(t *testing.T, rk *preference.Ranker, userID int64) []preference.SavedProject {
	t.Helper()
	rep, err := rk.Check(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rep.IsContiguous(), "ranks of user %d are not contiguous: %+v", userID, rep)

	saved, err := rk.List(context.Background(), userID)
	require.NoError(t, err)
	return saved
}

// RankerContract checks preference.Ranker on top of the repositories returned by newRepo.
// newRepo must return an empty repository.
func RankerContract(t *testing.T, newRepo func(t *testing.T) preference.Repository) {
	ctx := context.Background()
	newRanker := func(t *testing.T, policy preference.TopMovePolicy) (*preference.Ranker, preference.Repository) {
		repo := newRepo(t)
		return preference.NewRanker(repo, policy), repo
	}

	t.Run("append", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)

		saved := AppendProjects(t, rk, 7, 101, 102, 103, 104)
		for i, sp := range saved {
			assert.Equal(t, i+1, sp.RankIndex)
		}
		assert.Equal(t, []int64{101, 102, 103, 104}, ProjectIDs(AssertContiguous(t, rk, 7)))

		// other users start over at 1
		other := AppendProjects(t, rk, 8, 101)
		assert.Equal(t, 1, other[0].RankIndex)

		next, err := rk.NextRank(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 5, next)

		next, err = rk.NextRank(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("append duplicate", func(t *testing.T) {
		rk, repo := newRanker(t, preference.TopMoveRemove)
		AppendProjects(t, rk, 7, 101, 102)

		_, err := rk.Append(ctx, preference.SavedProject{UserID: 7, ProjectID: 101})
		assert.True(t, errors.Is(err, preference.ErrDuplicateSave))
		assert.Equal(t, preference.KindDuplicate, preference.KindOf(err))

		count, err := repo.CountSavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("append explicit rank", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)
		AppendProjects(t, rk, 7, 101)

		sp, err := rk.Append(ctx, preference.SavedProject{UserID: 7, ProjectID: 102, RankIndex: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, sp.RankIndex)

		for _, rank := range []int{1, 2, 4, 10} {
			_, err = rk.Append(ctx, preference.SavedProject{UserID: 7, ProjectID: 103, RankIndex: rank})
			assert.True(t, core.IsValidationError(err), "rank %d", rank)
		}
		AssertContiguous(t, rk, 7)
	})

	t.Run("remove", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)
		saved := AppendProjects(t, rk, 7, 101, 102, 103, 104)
		AppendProjects(t, rk, 8, 101, 102)

		removed, err := rk.Remove(ctx, saved[1].SaveID, 7)
		require.NoError(t, err)
		assert.Equal(t, saved[1], removed)

		got := AssertContiguous(t, rk, 7)
		assert.Equal(t, map[int64]int{
			saved[0].SaveID: 1,
			saved[2].SaveID: 2,
			saved[3].SaveID: 3,
		}, Ranks(got))
		AssertContiguous(t, rk, 8)

		// missing
		_, err = rk.Remove(ctx, saved[1].SaveID, 7)
		assert.True(t, errors.Is(err, preference.ErrNotFound))

		// someone else's
		_, err = rk.Remove(ctx, saved[0].SaveID, 8)
		assert.True(t, errors.Is(err, preference.ErrNotFound))
		assert.Len(t, AssertContiguous(t, rk, 7), 3)

		// any owner
		_, err = rk.Remove(ctx, saved[0].SaveID, 0)
		require.NoError(t, err)
		assert.Equal(t, []int64{103, 104}, ProjectIDs(AssertContiguous(t, rk, 7)))
	})

	moveTests := []struct {
		name        string
		policy      preference.TopMovePolicy
		move        int // index of the moved project
		direction   preference.Direction
		wantOutcome preference.MoveOutcome
		wantErr     bool
		wantOrder   []int64
	}{
		{
			name:        "up swaps with the previous",
			move:        1,
			direction:   preference.DirectionUp,
			wantOutcome: preference.MoveSwapped,
			wantOrder:   []int64{102, 101, 103},
		},
		{
			name:        "down swaps with the next",
			move:        1,
			direction:   preference.DirectionDown,
			wantOutcome: preference.MoveSwapped,
			wantOrder:   []int64{101, 103, 102},
		},
		{
			name:        "down from the last rank",
			move:        2,
			direction:   preference.DirectionDown,
			wantOutcome: preference.MoveUnchanged,
			wantOrder:   []int64{101, 102, 103},
		},
		{
			name:        "up from the first rank removes",
			policy:      preference.TopMoveRemove,
			move:        0,
			direction:   preference.DirectionUp,
			wantOutcome: preference.MoveRemoved,
			wantOrder:   []int64{102, 103},
		},
		{
			name:        "up from the first rank rejected",
			policy:      preference.TopMoveReject,
			move:        0,
			direction:   preference.DirectionUp,
			wantOutcome: preference.MoveUnchanged,
			wantErr:     true,
			wantOrder:   []int64{101, 102, 103},
		},
		{
			name:        "invalid direction",
			move:        1,
			direction:   "sideways",
			wantOutcome: preference.MoveUnchanged,
			wantErr:     true,
			wantOrder:   []int64{101, 102, 103},
		},
	}
	for _, tc := range moveTests {
		t.Run("move "+tc.name, func(t *testing.T) {
			rk, _ := newRanker(t, tc.policy)
			saved := AppendProjects(t, rk, 7, 101, 102, 103)

			outcome, err := rk.Move(ctx, saved[tc.move].SaveID, 7, tc.direction)
			if tc.wantErr {
				assert.Equal(t, preference.KindValidation, preference.KindOf(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantOutcome, outcome)
			assert.Equal(t, tc.wantOrder, ProjectIDs(AssertContiguous(t, rk, 7)))
		})
	}

	t.Run("move swaps only neighbours", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)
		saved := AppendProjects(t, rk, 7, 101, 102, 103)

		_, err := rk.Move(ctx, saved[1].SaveID, 7, preference.DirectionUp)
		require.NoError(t, err)

		got, err := rk.List(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int{
			saved[0].SaveID: 2,
			saved[1].SaveID: 1,
			saved[2].SaveID: 3,
		}, Ranks(got))
	})

	t.Run("move not owned", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)
		saved := AppendProjects(t, rk, 7, 101, 102)

		_, err := rk.Move(ctx, saved[1].SaveID, 8, preference.DirectionUp)
		assert.Equal(t, preference.KindNotFound, preference.KindOf(err))

		_, err = rk.Move(ctx, 404, 7, preference.DirectionUp)
		assert.Equal(t, preference.KindNotFound, preference.KindOf(err))
	})

	t.Run("describe", func(t *testing.T) {
		rk, repo := newRanker(t, preference.TopMoveRemove)
		saved := AppendProjects(t, rk, 7, 101, 102)
		desc := "dream project"

		sp, err := rk.Describe(ctx, saved[1].SaveID, 7, &desc)
		require.NoError(t, err)
		require.NotNil(t, sp.PreferenceDescription)
		assert.Equal(t, desc, *sp.PreferenceDescription)
		assert.Equal(t, 2, sp.RankIndex)

		got, err := repo.GetSavedProject(ctx, saved[1].SaveID)
		require.NoError(t, err)
		assert.Equal(t, sp, got)

		_, err = rk.Describe(ctx, saved[1].SaveID, 8, nil)
		assert.True(t, errors.Is(err, preference.ErrNotFound))

		sp, err = rk.Describe(ctx, saved[1].SaveID, 7, nil)
		require.NoError(t, err)
		assert.Nil(t, sp.PreferenceDescription)
	})

	t.Run("scenario", func(t *testing.T) {
		rk, _ := newRanker(t, preference.TopMoveRemove)

		saved := AppendProjects(t, rk, 7, 101, 102, 103)
		assert.Equal(t, []int{1, 2, 3}, []int{saved[0].RankIndex, saved[1].RankIndex, saved[2].RankIndex})

		outcome, err := rk.Move(ctx, saved[1].SaveID, 7, preference.DirectionUp)
		require.NoError(t, err)
		assert.Equal(t, preference.MoveSwapped, outcome)
		got := AssertContiguous(t, rk, 7)
		assert.Equal(t, []int64{102, 101, 103}, ProjectIDs(got))

		_, err = rk.Remove(ctx, saved[0].SaveID, 7)
		require.NoError(t, err)
		got = AssertContiguous(t, rk, 7)
		assert.Equal(t, []int64{102, 103}, ProjectIDs(got))
		assert.Equal(t, map[int64]int{saved[1].SaveID: 1, saved[2].SaveID: 2}, Ranks(got))
	})

	t.Run("renumber", func(t *testing.T) {
		rk, repo := newRanker(t, preference.TopMoveRemove)
		// a crash between a delete and its shift leaves gaps
		CreateSavedProject(t, repo, 7, 101, 2)
		CreateSavedProject(t, repo, 7, 102, 5)
		CreateSavedProject(t, repo, 7, 103, 5)

		rep, err := rk.Check(ctx, 7)
		require.NoError(t, err)
		assert.False(t, rep.IsContiguous())

		changed, err := rk.Renumber(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 3, changed)
		assert.Equal(t, []int64{101, 102, 103}, ProjectIDs(AssertContiguous(t, rk, 7)))

		changed, err = rk.Renumber(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 0, changed)
	})

	t.Run("concurrent writes", func(t *testing.T) {
		rk := preference.NewRanker(SlowRepository{Repository: newRepo(t), Delay: time.Millisecond}, preference.TopMoveRemove)
		saved := AppendProjects(t, rk, 7, 101, 102, 103, 104, 105, 106, 107, 108)
		AppendProjects(t, rk, 8, 101, 102, 103)

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for _, i := range []int{1, 3, 5} {
			wg.Add(1)
			go func(sp preference.SavedProject) {
				defer wg.Done()
				_, err := rk.Remove(ctx, sp.SaveID, 7)
				errs <- err
			}(saved[i])
		}
		for _, i := range []int{0, 2, 7} {
			wg.Add(1)
			go func(sp preference.SavedProject) {
				defer wg.Done()
				_, err := rk.Move(ctx, sp.SaveID, 7, preference.DirectionDown)
				errs <- err
			}(saved[i])
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rk.Append(ctx, preference.SavedProject{UserID: 8, ProjectID: 104})
			errs <- err
		}()
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		assert.Len(t, AssertContiguous(t, rk, 7), 5)
		assert.Len(t, AssertContiguous(t, rk, 8), 4)
	})
}
