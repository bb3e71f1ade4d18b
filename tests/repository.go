package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

var errRollback = errors.New("rollback")

// RepositoryContract checks the behaviour every preference.Repository shares.
// newRepo must return an empty repository.
func RepositoryContract(t *testing.T, newRepo func(t *testing.T) preference.Repository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		sp := CreateSavedProject(t, repo, 7, 101, 1, "dream project")
		plain := CreateSavedProject(t, repo, 7, 102, 2)

		assert.Greater(t, sp.SaveID, int64(0))
		assert.NotEqual(t, sp.SaveID, plain.SaveID)

		got, err := repo.GetSavedProject(ctx, sp.SaveID)
		require.NoError(t, err)
		assert.Equal(t, sp, got)
		require.NotNil(t, got.PreferenceDescription)
		assert.Equal(t, "dream project", *got.PreferenceDescription)

		got, err = repo.GetSavedProject(ctx, plain.SaveID)
		require.NoError(t, err)
		assert.Nil(t, got.PreferenceDescription)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetSavedProject(ctx, 404)
		assert.True(t, errors.Is(err, preference.ErrNotFound))

		_, err = repo.GetSavedProjectByRank(ctx, 7, 1)
		assert.True(t, errors.Is(err, preference.ErrNotFound))
	})

	t.Run("query in rank order", func(t *testing.T) {
		repo := newRepo(t)
		third := CreateSavedProject(t, repo, 7, 103, 3)
		first := CreateSavedProject(t, repo, 7, 101, 1)
		second := CreateSavedProject(t, repo, 7, 102, 2)
		CreateSavedProject(t, repo, 8, 101, 1)

		saved, err := repo.QuerySavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []preference.SavedProject{first, second, third}, saved)

		saved, err = repo.QuerySavedProjects(ctx, 9)
		require.NoError(t, err)
		assert.Empty(t, saved)

		byRank, err := repo.GetSavedProjectByRank(ctx, 7, 2)
		require.NoError(t, err)
		assert.Equal(t, second, byRank)
	})

	t.Run("count and exists", func(t *testing.T) {
		repo := newRepo(t)
		SaveProjects(t, repo, 7, 101, 102)
		SaveProjects(t, repo, 8, 103)

		count, err := repo.CountSavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = repo.CountSavedProjects(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		exists, err := repo.SavedProjectExists(ctx, 7, 102)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.SavedProjectExists(ctx, 7, 103)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("query user IDs", func(t *testing.T) {
		repo := newRepo(t)
		SaveProjects(t, repo, 9, 101)
		SaveProjects(t, repo, 7, 101, 102)

		ids, err := repo.QueryUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 9}, ids)
	})

	t.Run("update rank and description", func(t *testing.T) {
		repo := newRepo(t)
		sp := CreateSavedProject(t, repo, 7, 101, 1)

		require.NoError(t, repo.UpdateRank(ctx, sp.SaveID, 4))
		desc := "first choice"
		require.NoError(t, repo.UpdateDescription(ctx, sp.SaveID, &desc))

		got, err := repo.GetSavedProject(ctx, sp.SaveID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.RankIndex)
		require.NotNil(t, got.PreferenceDescription)
		assert.Equal(t, desc, *got.PreferenceDescription)

		require.NoError(t, repo.UpdateDescription(ctx, sp.SaveID, nil))
		got, err = repo.GetSavedProject(ctx, sp.SaveID)
		require.NoError(t, err)
		assert.Nil(t, got.PreferenceDescription)

		assert.True(t, errors.Is(repo.UpdateRank(ctx, 404, 1), preference.ErrNotFound))
		assert.True(t, errors.Is(repo.UpdateDescription(ctx, 404, nil), preference.ErrNotFound))
	})

	t.Run("shift ranks down", func(t *testing.T) {
		repo := newRepo(t)
		saved := SaveProjects(t, repo, 7, 101, 102, 103, 104)
		other := SaveProjects(t, repo, 8, 101, 102, 103)

		n, err := repo.ShiftRanksDown(ctx, 7, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := repo.QuerySavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int{
			saved[0].SaveID: 1,
			saved[1].SaveID: 2,
			saved[2].SaveID: 2,
			saved[3].SaveID: 3,
		}, Ranks(got))

		got, err = repo.QuerySavedProjects(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, Ranks(other), Ranks(got))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		saved := SaveProjects(t, repo, 7, 101, 102)

		require.NoError(t, repo.DeleteSavedProject(ctx, saved[0].SaveID))
		_, err := repo.GetSavedProject(ctx, saved[0].SaveID)
		assert.True(t, errors.Is(err, preference.ErrNotFound))
		assert.True(t, errors.Is(repo.DeleteSavedProject(ctx, saved[0].SaveID), preference.ErrNotFound))

		count, err := repo.CountSavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("transaction commits", func(t *testing.T) {
		repo := newRepo(t)
		saved := SaveProjects(t, repo, 7, 101, 102)

		err := repo.Transaction(ctx, func(tx preference.Repository) error {
			if err := tx.LockUser(ctx, 7); err != nil {
				return err
			}
			if err := tx.UpdateRank(ctx, saved[0].SaveID, 2); err != nil {
				return err
			}
			return tx.UpdateRank(ctx, saved[1].SaveID, 1)
		})
		require.NoError(t, err)

		got, err := repo.QuerySavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, []int64{102, 101}, ProjectIDs(got))
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		repo := newRepo(t)
		saved := SaveProjects(t, repo, 7, 101, 102)

		err := repo.Transaction(ctx, func(tx preference.Repository) error {
			if err := tx.DeleteSavedProject(ctx, saved[0].SaveID); err != nil {
				return err
			}
			if _, err := tx.ShiftRanksDown(ctx, 7, 1); err != nil {
				return err
			}
			if _, err := tx.CreateSavedProject(ctx, preference.SavedProject{UserID: 7, ProjectID: 103, RankIndex: 2}); err != nil {
				return err
			}
			return errRollback
		})
		assert.True(t, errors.Is(err, errRollback))

		got, err := repo.QuerySavedProjects(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("transaction rolls back on panic", func(t *testing.T) {
		repo := newRepo(t)
		saved := SaveProjects(t, repo, 7, 101, 102)

		assert.PanicsWithValue(t, "boom", func() {
			_ = repo.Transaction(ctx, func(tx preference.Repository) error {
				if err := tx.DeleteSavedProject(ctx, saved[0].SaveID); err != nil {
					return err
				}
				panic("boom")
			})
		})

		// the connection must be back in the pool
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		count, err := repo.CountSavedProjects(tctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		got, err := repo.QuerySavedProjects(tctx, 7)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})
}
