package preference

import "context"

// Repository is the persistence contract of saved projects.
// Implementations return ErrNotFound for missing rows and wrap every other failure.
type Repository interface {
	// Transaction runs fn against a Repository bound to one atomic unit of work.
	// The unit commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(repo Repository) error) error
	// LockUser serializes writers of userID's saved projects until the surrounding transaction ends.
	LockUser(ctx context.Context, userID int64) error

	GetSavedProject(ctx context.Context, saveID int64) (SavedProject, error)
	GetSavedProjectByRank(ctx context.Context, userID int64, rank int) (SavedProject, error)
	// QuerySavedProjects returns the saved projects of userID ordered by rank (then save ID).
	QuerySavedProjects(ctx context.Context, userID int64) ([]SavedProject, error)
	CountSavedProjects(ctx context.Context, userID int64) (int, error)
	SavedProjectExists(ctx context.Context, userID, projectID int64) (bool, error)
	// QueryUserIDs returns the IDs of all users owning at least one saved project.
	QueryUserIDs(ctx context.Context) ([]int64, error)

	CreateSavedProject(ctx context.Context, sp SavedProject) (SavedProject, error)
	UpdateRank(ctx context.Context, saveID int64, rank int) error
	UpdateDescription(ctx context.Context, saveID int64, desc *string) error
	// ShiftRanksDown decrements the rank of userID's saved projects ranked strictly after `after`.
	ShiftRanksDown(ctx context.Context, userID int64, after int) (int, error)
	DeleteSavedProject(ctx context.Context, saveID int64) error
}
