package boiledrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

const savedProjectColumns = "save_id, user_id, project_id, rank_index, preference_description"

type (
	preferenceRepository struct {
		db            core.DB
		exec          core.DBExecutor
		inTx          bool
		advisoryLocks bool
	}

	// savedProjectRow is the saved_projects table as bound by sqlboiler.
	savedProjectRow struct {
		SaveID                int64       `boil:"save_id"`
		UserID                int64       `boil:"user_id"`
		ProjectID             int64       `boil:"project_id"`
		RankIndex             int         `boil:"rank_index"`
		PreferenceDescription null.String `boil:"preference_description"`
	}

	countRow struct {
		Count int `boil:"count"`
	}

	userIDRow struct {
		UserID int64 `boil:"user_id"`
	}

	Option func(repo *preferenceRepository)
)

var _ preference.Repository = (*preferenceRepository)(nil) // interface compliance check

// WithAdvisoryLocks makes LockUser take a transaction level Postgres advisory lock.
func WithAdvisoryLocks(enabled bool) Option {
	return func(repo *preferenceRepository) { repo.advisoryLocks = enabled }
}

func NewPreferenceRepository(db core.DB, opts ...Option) preference.Repository {
	repo := &preferenceRepository{db: db, exec: db}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

func (row savedProjectRow) unboil() preference.SavedProject {
	return preference.SavedProject{
		SaveID:                row.SaveID,
		UserID:                row.UserID,
		ProjectID:             row.ProjectID,
		RankIndex:             row.RankIndex,
		PreferenceDescription: row.PreferenceDescription.Ptr(),
	}
}

func unboilSlice(rows []savedProjectRow) []preference.SavedProject {
	saved := make([]preference.SavedProject, 0, len(rows))
	for _, row := range rows {
		saved = append(saved, row.unboil())
	}
	return saved
}

// userProjectKey is the unique (user_id, project_id) constraint of saved_projects.
const userProjectKey = "saved_projects_user_project_key"

// trapErr maps violations of userProjectKey to preference.ErrDuplicateSave.
// A lost database (admin shutdown, closed connection) becomes a core shutdown error.
func trapErr(err error, msg string) error {
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == userProjectKey:
		return preference.ErrDuplicateSave
	case errors.As(err, &pqErr) && pqErr.Code.Class() == "57": // operator intervention
		return errors.Wrap(core.NewShutdownError(pqErr.Message), msg)
	case errors.Is(err, sql.ErrConnDone):
		return errors.Wrap(core.NewShutdownError("database connection closed"), msg)
	}
	return errors.Wrap(err, msg)
}

func (repo *preferenceRepository) Transaction(ctx context.Context, fn func(repo preference.Repository) error) (err error) {
	if repo.inTx {
		return fn(repo)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return trapErr(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&preferenceRepository{db: repo.db, exec: tx, inTx: true, advisoryLocks: repo.advisoryLocks}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return trapErr(err, "committing transaction")
	}
	return nil
}

func (repo *preferenceRepository) LockUser(ctx context.Context, userID int64) error {
	if !repo.advisoryLocks {
		return nil
	}
	if !repo.inTx {
		return errors.New("locking user outside a transaction")
	}
	// the lock is released when the transaction ends
	if _, err := queries.Raw("SELECT pg_advisory_xact_lock($1)", userID).ExecContext(ctx, repo.exec); err != nil {
		return trapErr(err, "taking advisory lock")
	}
	return nil
}

func (repo *preferenceRepository) one(ctx context.Context, msg, query string, args ...interface{}) (preference.SavedProject, error) {
	var rows []savedProjectRow
	if err := queries.Raw(query, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return preference.SavedProject{}, trapErr(err, msg)
	}
	if len(rows) == 0 {
		return preference.SavedProject{}, preference.ErrNotFound
	}
	return rows[0].unboil(), nil
}

func (repo *preferenceRepository) GetSavedProject(ctx context.Context, saveID int64) (preference.SavedProject, error) {
	return repo.one(ctx, "finding saved project",
		"SELECT "+savedProjectColumns+" FROM saved_projects WHERE save_id = $1", saveID)
}

func (repo *preferenceRepository) GetSavedProjectByRank(ctx context.Context, userID int64, rank int) (preference.SavedProject, error) {
	return repo.one(ctx, "finding saved project by rank",
		"SELECT "+savedProjectColumns+" FROM saved_projects WHERE user_id = $1 AND rank_index = $2 ORDER BY save_id LIMIT 1",
		userID, rank)
}

func (repo *preferenceRepository) QuerySavedProjects(ctx context.Context, userID int64) ([]preference.SavedProject, error) {
	var rows []savedProjectRow
	q := "SELECT " + savedProjectColumns + " FROM saved_projects WHERE user_id = $1 ORDER BY rank_index, save_id"
	if err := queries.Raw(q, userID).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, trapErr(err, "querying saved projects")
	}
	return unboilSlice(rows), nil
}

func (repo *preferenceRepository) CountSavedProjects(ctx context.Context, userID int64) (int, error) {
	var row countRow
	q := "SELECT COUNT(*) AS count FROM saved_projects WHERE user_id = $1"
	if err := queries.Raw(q, userID).Bind(ctx, repo.exec, &row); err != nil {
		return 0, trapErr(err, "counting saved projects")
	}
	return row.Count, nil
}

func (repo *preferenceRepository) SavedProjectExists(ctx context.Context, userID, projectID int64) (bool, error) {
	var row countRow
	q := "SELECT COUNT(*) AS count FROM saved_projects WHERE user_id = $1 AND project_id = $2"
	if err := queries.Raw(q, userID, projectID).Bind(ctx, repo.exec, &row); err != nil {
		return false, trapErr(err, "checking saved project existence")
	}
	return row.Count > 0, nil
}

func (repo *preferenceRepository) QueryUserIDs(ctx context.Context) ([]int64, error) {
	var rows []userIDRow
	q := "SELECT DISTINCT user_id FROM saved_projects ORDER BY user_id"
	if err := queries.Raw(q).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, trapErr(err, "querying user IDs")
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func (repo *preferenceRepository) CreateSavedProject(ctx context.Context, sp preference.SavedProject) (preference.SavedProject, error) {
	var rows []savedProjectRow
	q := "INSERT INTO saved_projects (user_id, project_id, rank_index, preference_description) " +
		"VALUES ($1, $2, $3, $4) RETURNING " + savedProjectColumns
	err := queries.Raw(q, sp.UserID, sp.ProjectID, sp.RankIndex, null.StringFromPtr(sp.PreferenceDescription)).
		Bind(ctx, repo.exec, &rows)
	if err != nil {
		return preference.SavedProject{}, trapErr(err, "inserting saved project")
	}
	if len(rows) == 0 {
		return preference.SavedProject{}, errors.New("inserting saved project: no row returned")
	}
	return rows[0].unboil(), nil
}

// update runs an UPDATE/DELETE expected to touch exactly the row saveID.
func (repo *preferenceRepository) update(ctx context.Context, msg, query string, args ...interface{}) error {
	res, err := queries.Raw(query, args...).ExecContext(ctx, repo.exec)
	if err != nil {
		return trapErr(err, msg)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return trapErr(err, msg)
	}
	if n == 0 {
		return preference.ErrNotFound
	}
	return nil
}

func (repo *preferenceRepository) UpdateRank(ctx context.Context, saveID int64, rank int) error {
	return repo.update(ctx, "updating rank",
		"UPDATE saved_projects SET rank_index = $1 WHERE save_id = $2", rank, saveID)
}

func (repo *preferenceRepository) UpdateDescription(ctx context.Context, saveID int64, desc *string) error {
	return repo.update(ctx, "updating preference description",
		"UPDATE saved_projects SET preference_description = $1 WHERE save_id = $2", null.StringFromPtr(desc), saveID)
}

func (repo *preferenceRepository) ShiftRanksDown(ctx context.Context, userID int64, after int) (int, error) {
	q := "UPDATE saved_projects SET rank_index = rank_index - 1 WHERE user_id = $1 AND rank_index > $2"
	res, err := queries.Raw(q, userID, after).ExecContext(ctx, repo.exec)
	if err != nil {
		return 0, trapErr(err, "shifting ranks down")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, trapErr(err, "shifting ranks down")
	}
	return int(n), nil
}

func (repo *preferenceRepository) DeleteSavedProject(ctx context.Context, saveID int64) error {
	return repo.update(ctx, "deleting saved project",
		"DELETE FROM saved_projects WHERE save_id = $1", saveID)
}
