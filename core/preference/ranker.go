package preference

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

// Ranker keeps every user's saved project ranks contiguous: for a user with N saved projects,
// the ranks are exactly 1..N.
//
// Writes for one user are serialized twice: by an in-process mutex keyed by user ID and,
// inside the transaction, by Repository.LockUser for writers living in other processes.
// Every compound write (eg: delete + shift) runs in a single transaction.
// Writes for different users never wait on each other.
type Ranker struct {
	repo   Repository
	policy TopMovePolicy
	locks  *xsync.MapOf[int64, *userLock]
}

// userLock is dropped from Ranker.locks once nobody holds or awaits it.
type userLock struct {
	sync.Mutex
	refs int // guarded by the map entry
}

func NewRanker(repo Repository, policy TopMovePolicy) *Ranker {
	if policy != TopMoveReject {
		policy = TopMoveRemove
	}
	return &Ranker{
		repo:   repo,
		policy: policy,
		locks:  xsync.NewMapOf[int64, *userLock](),
	}
}

func (rk *Ranker) lock(userID int64) func() {
	l, _ := rk.locks.Compute(userID, func(l *userLock, loaded bool) (*userLock, bool) {
		if !loaded {
			l = new(userLock)
		}
		l.refs++
		return l, false
	})
	l.Lock()

	return func() {
		l.Unlock()
		rk.locks.Compute(userID, func(l *userLock, _ bool) (*userLock, bool) {
			l.refs--
			return l, l.refs == 0
		})
	}
}

// write runs fn in a transaction holding both of userID's locks.
func (rk *Ranker) write(ctx context.Context, userID int64, fn func(repo Repository) error) error {
	unlock := rk.lock(userID)
	defer unlock()

	return rk.repo.Transaction(ctx, func(repo Repository) error {
		if err := repo.LockUser(ctx, userID); err != nil {
			return errors.Wrap(err, "locking user")
		}
		return fn(repo)
	})
}

// owner finds the user owning saveID. ownerID 0 accepts any owner.
func (rk *Ranker) owner(ctx context.Context, saveID, ownerID int64) (int64, error) {
	sp, err := rk.repo.GetSavedProject(ctx, saveID)
	if err != nil {
		return 0, errors.Wrap(err, "finding saved project")
	}
	if ownerID != 0 && sp.UserID != ownerID {
		return 0, ErrNotFound
	}
	return sp.UserID, nil
}

// Append saves sp as its owner's least preferred project.
// sp.RankIndex may be left at 0; any other value must be the owner's next rank.
func (rk *Ranker) Append(ctx context.Context, sp SavedProject) (SavedProject, error) {
	var created SavedProject
	err := rk.write(ctx, sp.UserID, func(repo Repository) error {
		exists, err := repo.SavedProjectExists(ctx, sp.UserID, sp.ProjectID)
		if err != nil {
			return errors.Wrap(err, "checking saved project uniqueness")
		}
		if exists {
			return ErrDuplicateSave
		}

		count, err := repo.CountSavedProjects(ctx, sp.UserID)
		if err != nil {
			return errors.Wrap(err, "counting saved projects")
		}
		next := count + 1
		if sp.RankIndex != 0 && sp.RankIndex != next {
			return core.NewValidationError(nil, core.FieldError{
				Field: "rank_index",
				Error: fmt.Sprintf("rank_index must be %d", next),
			})
		}

		sp.SaveID = 0
		sp.RankIndex = next
		created, err = repo.CreateSavedProject(ctx, sp)
		return errors.Wrap(err, "creating saved project")
	})
	return created, err
}

// Remove deletes saveID and closes the gap it leaves in its owner's ranks.
// ownerID 0 accepts any owner.
func (rk *Ranker) Remove(ctx context.Context, saveID, ownerID int64) (SavedProject, error) {
	userID, err := rk.owner(ctx, saveID, ownerID)
	if err != nil {
		return SavedProject{}, err
	}

	var removed SavedProject
	err = rk.write(ctx, userID, func(repo Repository) error {
		removed, err = rk.remove(ctx, repo, saveID, userID)
		return err
	})
	return removed, err
}

// remove must run inside write. The rank is read before the row goes away.
func (rk *Ranker) remove(ctx context.Context, repo Repository, saveID, userID int64) (SavedProject, error) {
	// the row may have been removed or moved since it was first looked up
	sp, err := repo.GetSavedProject(ctx, saveID)
	if err != nil {
		return SavedProject{}, errors.Wrap(err, "finding saved project")
	}
	if sp.UserID != userID {
		return SavedProject{}, ErrNotFound
	}

	if err = repo.DeleteSavedProject(ctx, saveID); err != nil {
		return SavedProject{}, errors.Wrap(err, "deleting saved project")
	}
	if _, err = repo.ShiftRanksDown(ctx, userID, sp.RankIndex); err != nil {
		return SavedProject{}, errors.Wrap(err, "shifting ranks down")
	}
	return sp, nil
}

// Move exchanges the rank of saveID with its neighbour in direction.
//   - moving the last saved project down changes nothing.
//   - moving the first saved project up follows the TopMovePolicy.
func (rk *Ranker) Move(ctx context.Context, saveID, ownerID int64, direction Direction) (MoveOutcome, error) {
	if !direction.IsValid() {
		return MoveUnchanged, core.NewValidationError(nil, core.FieldError{Field: "direction", Error: directionText})
	}
	userID, err := rk.owner(ctx, saveID, ownerID)
	if err != nil {
		return MoveUnchanged, err
	}

	outcome := MoveUnchanged
	err = rk.write(ctx, userID, func(repo Repository) error {
		sp, err := repo.GetSavedProject(ctx, saveID)
		if err != nil {
			return errors.Wrap(err, "finding saved project")
		}
		if sp.UserID != userID {
			return ErrNotFound
		}

		target := sp.RankIndex + 1
		if direction == DirectionUp {
			target = sp.RankIndex - 1
		}

		if target <= 0 {
			if rk.policy == TopMoveReject {
				return core.NewValidationError(nil, core.FieldError{
					Field: "direction",
					Error: "the most preferred project cannot move up",
				})
			}
			if _, err = rk.remove(ctx, repo, saveID, userID); err != nil {
				return err
			}
			outcome = MoveRemoved
			return nil
		}

		neighbour, err := repo.GetSavedProjectByRank(ctx, userID, target)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil // already last
			}
			return errors.Wrap(err, "finding neighbour")
		}

		if err = repo.UpdateRank(ctx, sp.SaveID, target); err != nil {
			return errors.Wrap(err, "updating rank")
		}
		if err = repo.UpdateRank(ctx, neighbour.SaveID, sp.RankIndex); err != nil {
			return errors.Wrap(err, "updating neighbour rank")
		}
		outcome = MoveSwapped
		return nil
	})
	if err != nil {
		return MoveUnchanged, err
	}
	return outcome, nil
}

// Describe sets the preference description of saveID. ownerID 0 accepts any owner.
func (rk *Ranker) Describe(ctx context.Context, saveID, ownerID int64, desc *string) (SavedProject, error) {
	userID, err := rk.owner(ctx, saveID, ownerID)
	if err != nil {
		return SavedProject{}, err
	}

	var sp SavedProject
	err = rk.write(ctx, userID, func(repo Repository) error {
		if sp, err = repo.GetSavedProject(ctx, saveID); err != nil {
			return errors.Wrap(err, "finding saved project")
		}
		if sp.UserID != userID {
			return ErrNotFound
		}
		if err = repo.UpdateDescription(ctx, saveID, desc); err != nil {
			return errors.Wrap(err, "updating preference description")
		}
		sp.PreferenceDescription = desc
		return nil
	})
	if err != nil {
		return SavedProject{}, err
	}
	return sp, nil
}

// List returns userID's saved projects, most preferred first.
func (rk *Ranker) List(ctx context.Context, userID int64) ([]SavedProject, error) {
	saved, err := rk.repo.QuerySavedProjects(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying saved projects")
	}
	return saved, nil
}

// NextRank is the rank the next saved project of userID will get.
func (rk *Ranker) NextRank(ctx context.Context, userID int64) (int, error) {
	count, err := rk.repo.CountSavedProjects(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "counting saved projects")
	}
	return count + 1, nil
}

// Check reports whether userID's ranks are contiguous.
func (rk *Ranker) Check(ctx context.Context, userID int64) (RankReport, error) {
	saved, err := rk.List(ctx, userID)
	if err != nil {
		return RankReport{}, err
	}
	return NewRankReport(userID, saved), nil
}

// Renumber rewrites userID's ranks to 1..N keeping their current order,
// and returns how many saved projects changed rank.
func (rk *Ranker) Renumber(ctx context.Context, userID int64) (int, error) {
	var changed int
	err := rk.write(ctx, userID, func(repo Repository) error {
		saved, err := repo.QuerySavedProjects(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "querying saved projects")
		}
		for i, sp := range saved {
			if sp.RankIndex == i+1 {
				continue
			}
			if err = repo.UpdateRank(ctx, sp.SaveID, i+1); err != nil {
				return errors.Wrap(err, "updating rank")
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
