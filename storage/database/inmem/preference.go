package inmemdb

import (
	"context"
	"sort"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

type (
	preferenceRepository struct {
		db *savedProjectTable
		tx *txState // nil outside transactions
	}

	txState struct {
		rows    map[int64]preference.SavedProject
		pkCount int64
	}
)

var _ preference.Repository = (*preferenceRepository)(nil) // interface compliance check

// NewPreferenceRepository returns a Repository keeping saved projects in memory.
// Transactions work on a private copy of the table which replaces it on commit,
// so readers never see a half-applied write.
func NewPreferenceRepository(db *DB) preference.Repository {
	return &preferenceRepository{db: db.savedProject}
}

func (repo *preferenceRepository) Transaction(ctx context.Context, fn func(repo preference.Repository) error) error {
	if repo.tx != nil {
		return fn(repo) // already in a transaction
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.txMutex.Lock()
	defer repo.db.txMutex.Unlock()

	rows, pkCount := repo.db.snapshot()
	txRepo := &preferenceRepository{db: repo.db, tx: &txState{rows: rows, pkCount: pkCount}}
	if err := fn(txRepo); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	repo.db.commit(txRepo.tx.rows, txRepo.tx.pkCount)
	return nil
}

// LockUser is a no-op: transactions are already serialized.
func (repo *preferenceRepository) LockUser(context.Context, int64) error {
	return nil
}

// read runs fn against the rows visible to repo.
func (repo *preferenceRepository) read(fn func(rows map[int64]preference.SavedProject)) {
	if repo.tx != nil {
		fn(repo.tx.rows)
		return
	}
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	fn(repo.db.table)
}

// write runs fn in a transaction unless repo already is one.
func (repo *preferenceRepository) write(ctx context.Context, fn func(tx *txState) error) error {
	return repo.Transaction(ctx, func(r preference.Repository) error {
		return fn(r.(*preferenceRepository).tx)
	})
}

func (repo *preferenceRepository) ofUser(rows map[int64]preference.SavedProject, userID int64) []preference.SavedProject {
	saved := make([]preference.SavedProject, 0)
	for _, sp := range rows {
		if sp.UserID == userID {
			saved = append(saved, sp)
		}
	}
	sort.Slice(saved, func(i, j int) bool {
		if saved[i].RankIndex != saved[j].RankIndex {
			return saved[i].RankIndex < saved[j].RankIndex
		}
		return saved[i].SaveID < saved[j].SaveID
	})
	return saved
}

func (repo *preferenceRepository) GetSavedProject(_ context.Context, saveID int64) (preference.SavedProject, error) {
	var (
		sp preference.SavedProject
		ok bool
	)
	repo.read(func(rows map[int64]preference.SavedProject) {
		sp, ok = rows[saveID]
	})
	if !ok {
		return preference.SavedProject{}, preference.ErrNotFound
	}
	return sp, nil
}

func (repo *preferenceRepository) GetSavedProjectByRank(_ context.Context, userID int64, rank int) (preference.SavedProject, error) {
	var (
		found preference.SavedProject
		ok    bool
	)
	repo.read(func(rows map[int64]preference.SavedProject) {
		for _, sp := range repo.ofUser(rows, userID) {
			if sp.RankIndex == rank {
				found, ok = sp, true
				return
			}
		}
	})
	if !ok {
		return preference.SavedProject{}, preference.ErrNotFound
	}
	return found, nil
}

func (repo *preferenceRepository) QuerySavedProjects(_ context.Context, userID int64) ([]preference.SavedProject, error) {
	var saved []preference.SavedProject
	repo.read(func(rows map[int64]preference.SavedProject) {
		saved = repo.ofUser(rows, userID)
	})
	return saved, nil
}

func (repo *preferenceRepository) CountSavedProjects(_ context.Context, userID int64) (int, error) {
	var count int
	repo.read(func(rows map[int64]preference.SavedProject) {
		for _, sp := range rows {
			if sp.UserID == userID {
				count++
			}
		}
	})
	return count, nil
}

func (repo *preferenceRepository) SavedProjectExists(_ context.Context, userID, projectID int64) (bool, error) {
	var exists bool
	repo.read(func(rows map[int64]preference.SavedProject) {
		for _, sp := range rows {
			if sp.UserID == userID && sp.ProjectID == projectID {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (repo *preferenceRepository) QueryUserIDs(context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	repo.read(func(rows map[int64]preference.SavedProject) {
		for _, sp := range rows {
			seen[sp.UserID] = struct{}{}
		}
	})

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (repo *preferenceRepository) CreateSavedProject(ctx context.Context, sp preference.SavedProject) (preference.SavedProject, error) {
	err := repo.write(ctx, func(tx *txState) error {
		for _, row := range tx.rows {
			if row.UserID == sp.UserID && row.ProjectID == sp.ProjectID {
				return preference.ErrDuplicateSave
			}
		}
		tx.pkCount++
		sp.SaveID = tx.pkCount
		sp.PreferenceDescription = copyString(sp.PreferenceDescription)
		tx.rows[sp.SaveID] = sp
		return nil
	})
	if err != nil {
		return preference.SavedProject{}, err
	}
	return sp, nil
}

func (repo *preferenceRepository) UpdateRank(ctx context.Context, saveID int64, rank int) error {
	return repo.write(ctx, func(tx *txState) error {
		sp, ok := tx.rows[saveID]
		if !ok {
			return preference.ErrNotFound
		}
		sp.RankIndex = rank
		tx.rows[saveID] = sp
		return nil
	})
}

func (repo *preferenceRepository) UpdateDescription(ctx context.Context, saveID int64, desc *string) error {
	return repo.write(ctx, func(tx *txState) error {
		sp, ok := tx.rows[saveID]
		if !ok {
			return preference.ErrNotFound
		}
		sp.PreferenceDescription = copyString(desc)
		tx.rows[saveID] = sp
		return nil
	})
}

func (repo *preferenceRepository) ShiftRanksDown(ctx context.Context, userID int64, after int) (int, error) {
	var shifted int
	err := repo.write(ctx, func(tx *txState) error {
		for id, sp := range tx.rows {
			if sp.UserID == userID && sp.RankIndex > after {
				sp.RankIndex--
				tx.rows[id] = sp
				shifted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return shifted, nil
}

func (repo *preferenceRepository) DeleteSavedProject(ctx context.Context, saveID int64) error {
	return repo.write(ctx, func(tx *txState) error {
		if _, ok := tx.rows[saveID]; !ok {
			return preference.ErrNotFound
		}
		delete(tx.rows, saveID)
		return nil
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
