package inmemdb

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/tests"
)

func newRepo(*testing.T) preference.Repository {
	return NewPreferenceRepository(Open())
}

func TestPreferenceRepository(t *testing.T) {
	testutil.RepositoryContract(t, newRepo)
}

func TestPreferenceRepository_CreateDuplicate(t *testing.T) {
	repo := newRepo(t)
	testutil.CreateSavedProject(t, repo, 7, 101, 1)

	_, err := repo.CreateSavedProject(context.Background(), preference.SavedProject{UserID: 7, ProjectID: 101, RankIndex: 2})
	assert.True(t, errors.Is(err, preference.ErrDuplicateSave))
}

func TestPreferenceRepository_ReadersSeeCommittedRows(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	saved := testutil.SaveProjects(t, repo, 7, 101, 102)

	inTx := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = repo.Transaction(ctx, func(tx preference.Repository) error {
			if err := tx.UpdateRank(ctx, saved[0].SaveID, 2); err != nil {
				return err
			}
			close(inTx)
			<-release // other rank not swapped yet
			return tx.UpdateRank(ctx, saved[1].SaveID, 1)
		})
	}()

	<-inTx
	got, err := repo.QuerySavedProjects(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	close(release)
	wg.Wait()

	got, err = repo.QuerySavedProjects(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{102, 101}, testutil.ProjectIDs(got))
}

func TestPreferenceRepository_CanceledTransaction(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Transaction(ctx, func(tx preference.Repository) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}
