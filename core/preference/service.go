package preference

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

const errPositiveID = "must be a positive integer"

type (
	// Service is the public surface of students' saved project preferences.
	// Every failure is classified by KindOf; Message renders it for end users.
	Service interface {
		List(ctx context.Context, userID int64) ([]SavedProject, error)
		Get(ctx context.Context, saveID, userID int64) (SavedProject, error)
		Save(ctx context.Context, data NewSavedProject) (SavedProject, error)
		// Remove deletes saveID. userID 0 skips the ownership check.
		Remove(ctx context.Context, saveID, userID int64) error
		// NextRank returns the rank a newly saved project gets, or 0 with an error.
		NextRank(ctx context.Context, userID int64) (int, error)
		// Reorder moves a saved project then returns the owner's refreshed preference list.
		Reorder(ctx context.Context, data MoveSavedProject) ([]SavedProject, MoveOutcome, error)
		UpdateDescription(ctx context.Context, saveID, userID int64, data UpdateSavedProject) (SavedProject, error)

		// maintenance
		Check(ctx context.Context, userID int64) (RankReport, error)
		// CheckAll returns the reports of the users whose ranks are not contiguous.
		CheckAll(ctx context.Context) ([]RankReport, error)
		Repair(ctx context.Context, userID int64) (int, error)
	}

	service struct {
		repo     Repository
		ranker   *Ranker
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:     repo,
		ranker:   NewRanker(repo, ParseTopMovePolicy(conf.Preferences.TopMovePolicy)),
		validate: validate,
		logger:   logger,
	}
}

type idField struct {
	name string
	id   int64
}

func checkIDs(ids ...idField) error {
	var flds []core.FieldError
	for _, f := range ids {
		if f.id <= 0 {
			flds = append(flds, core.FieldError{Field: f.name, Error: errPositiveID})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// fail wraps err with msg. Storage failures are logged with the extra args since callers only see a generic message.
func (svc *service) fail(err error, msg string, args ...interface{}) error {
	if KindOf(err) == KindStorage {
		svc.logger.Error(msg, append([]interface{}{err}, args...)...)
	}
	return errors.Wrap(err, msg)
}

func (svc *service) List(ctx context.Context, userID int64) ([]SavedProject, error) {
	if err := checkIDs(idField{"user_id", userID}); err != nil {
		return nil, err
	}
	saved, err := svc.ranker.List(ctx, userID)
	if err != nil {
		return nil, svc.fail(err, "listing saved projects", map[string]interface{}{"user_id": userID})
	}
	return saved, nil
}

func (svc *service) Get(ctx context.Context, saveID, userID int64) (SavedProject, error) {
	if err := checkIDs(idField{"save_id", saveID}, idField{"user_id", userID}); err != nil {
		return SavedProject{}, err
	}
	sp, err := svc.repo.GetSavedProject(ctx, saveID)
	if err != nil {
		return SavedProject{}, svc.fail(err, "finding saved project", map[string]interface{}{"save_id": saveID})
	}
	if sp.UserID != userID {
		return SavedProject{}, ErrNotFound
	}
	return sp, nil
}

func (svc *service) Save(ctx context.Context, data NewSavedProject) (SavedProject, error) {
	if err := data.Validate(svc.validate); err != nil {
		return SavedProject{}, err
	}
	sp, err := svc.ranker.Append(ctx, SavedProject{
		UserID:                data.UserID,
		ProjectID:             data.ProjectID,
		RankIndex:             data.RankIndex,
		PreferenceDescription: data.PreferenceDescription,
	})
	if err != nil {
		return SavedProject{}, svc.fail(err, "saving project", map[string]interface{}{
			"user_id":    data.UserID,
			"project_id": data.ProjectID,
		})
	}
	svc.logger.Debug("project saved", map[string]interface{}{
		"save_id":    sp.SaveID,
		"user_id":    sp.UserID,
		"project_id": sp.ProjectID,
		"rank_index": sp.RankIndex,
	})
	return sp, nil
}

func (svc *service) Remove(ctx context.Context, saveID, userID int64) error {
	if err := checkIDs(idField{"save_id", saveID}); err != nil {
		return err
	}
	if userID < 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: errPositiveID})
	}
	if _, err := svc.ranker.Remove(ctx, saveID, userID); err != nil {
		return svc.fail(err, "removing saved project", map[string]interface{}{"save_id": saveID, "user_id": userID})
	}
	return nil
}

func (svc *service) NextRank(ctx context.Context, userID int64) (int, error) {
	if err := checkIDs(idField{"user_id", userID}); err != nil {
		return 0, err
	}
	rank, err := svc.ranker.NextRank(ctx, userID)
	if err != nil {
		return 0, svc.fail(err, "getting next rank", map[string]interface{}{"user_id": userID})
	}
	return rank, nil
}

func (svc *service) Reorder(ctx context.Context, data MoveSavedProject) ([]SavedProject, MoveOutcome, error) {
	if err := data.Validate(svc.validate); err != nil {
		return nil, MoveUnchanged, err
	}
	extra := map[string]interface{}{
		"save_id":   data.SaveID,
		"user_id":   data.UserID,
		"direction": data.Direction,
	}

	outcome, err := svc.ranker.Move(ctx, data.SaveID, data.UserID, data.Direction)
	if err != nil {
		return nil, MoveUnchanged, svc.fail(err, "moving saved project", extra)
	}
	if outcome == MoveRemoved {
		svc.logger.Info("saved project removed by moving it up from the top rank", extra)
	}

	saved, err := svc.ranker.List(ctx, data.UserID)
	if err != nil {
		return nil, outcome, svc.fail(err, "listing saved projects", extra)
	}
	return saved, outcome, nil
}

func (svc *service) UpdateDescription(ctx context.Context, saveID, userID int64, data UpdateSavedProject) (SavedProject, error) {
	if err := checkIDs(idField{"save_id", saveID}, idField{"user_id", userID}); err != nil {
		return SavedProject{}, err
	}
	if err := data.Validate(svc.validate); err != nil {
		return SavedProject{}, err
	}

	sp, err := svc.ranker.Describe(ctx, saveID, userID, data.PreferenceDescription)
	if err != nil {
		return SavedProject{}, svc.fail(err, "updating preference description", map[string]interface{}{"save_id": saveID})
	}
	return sp, nil
}

func (svc *service) Check(ctx context.Context, userID int64) (RankReport, error) {
	if err := checkIDs(idField{"user_id", userID}); err != nil {
		return RankReport{}, err
	}
	rep, err := svc.ranker.Check(ctx, userID)
	if err != nil {
		return RankReport{}, svc.fail(err, "checking ranks", map[string]interface{}{"user_id": userID})
	}
	return rep, nil
}

func (svc *service) CheckAll(ctx context.Context) ([]RankReport, error) {
	userIDs, err := svc.repo.QueryUserIDs(ctx)
	if err != nil {
		return nil, svc.fail(err, "querying user IDs")
	}

	var reports []RankReport
	for _, userID := range userIDs {
		rep, err := svc.ranker.Check(ctx, userID)
		if err != nil {
			return nil, svc.fail(err, "checking ranks", map[string]interface{}{"user_id": userID})
		}
		if !rep.IsContiguous() {
			reports = append(reports, rep)
		}
	}
	return reports, nil
}

func (svc *service) Repair(ctx context.Context, userID int64) (int, error) {
	if err := checkIDs(idField{"user_id", userID}); err != nil {
		return 0, err
	}
	changed, err := svc.ranker.Renumber(ctx, userID)
	if err != nil {
		return 0, svc.fail(err, "renumbering ranks", map[string]interface{}{"user_id": userID})
	}
	if changed > 0 {
		svc.logger.Warn("saved project ranks repaired", map[string]interface{}{"user_id": userID, "changed": changed})
	}
	return changed, nil
}
