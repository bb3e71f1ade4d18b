package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

type (
	preferenceApi struct {
		svc preference.Service
	}

	SavedProjectListResponse struct {
		Error         bool                      `json:"error"`
		SavedProjects []preference.SavedProject `json:"saved_projects"`
	}

	SavedProjectResponse struct {
		Error        bool                    `json:"error"`
		SavedProject preference.SavedProject `json:"saved_project"`
	}

	SaveResponse struct {
		Error  bool  `json:"error"`
		SaveID int64 `json:"save_id"`
	}

	NextRankResponse struct {
		Error     bool `json:"error"`
		RankIndex int  `json:"rank_index"`
	}

	MoveRequest struct {
		Direction preference.Direction `json:"direction"`
	}

	MoveResponse struct {
		Error         bool                      `json:"error"`
		Outcome       string                    `json:"outcome"`
		SavedProjects []preference.SavedProject `json:"saved_projects"`
	}

	SuccessResponse struct {
		Error bool `json:"error"`
	}

	RankReportsResponse struct {
		Error   bool                    `json:"error"`
		Reports []preference.RankReport `json:"reports"`
	}

	RepairResponse struct {
		Error   bool `json:"error"`
		Changed int  `json:"changed"`
	}
)

func registerPreferenceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc preference.Service) {
	api := preferenceApi{svc: svc}

	// maintenance endpoints
	mg := g.Group("/saved-projects", jwt, adminMiddleware())
	mg.GET("/rank-reports", api.rankReports)

	ug := g.Group("/users/:userId/saved-projects", jwt, ctxUserOrAdminMiddleware())
	ug.GET("", api.list)
	ug.POST("", api.create)
	ug.GET("/next-rank", api.nextRank)
	ug.POST("/repair", api.repair, adminMiddleware())

	// detail endpoints
	ug.GET("/:saveId", api.retrieve)
	ug.PATCH("/:saveId", api.update)
	ug.DELETE("/:saveId", api.destroy)
	ug.POST("/:saveId/move", api.move)
}

// Handlers

func (api *preferenceApi) list(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	saved, err := api.svc.List(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "listing saved projects")
	}
	return ctx.JSON(http.StatusOK, SavedProjectListResponse{SavedProjects: nonNil(saved)})
}

func (api *preferenceApi) create(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	var data preference.NewSavedProject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSavedProject")
	}
	data.UserID = userID // the path decides

	sp, err := api.svc.Save(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving project")
	}
	return ctx.JSON(http.StatusCreated, SaveResponse{SaveID: sp.SaveID})
}

func (api *preferenceApi) nextRank(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return &nextRankError{err}
	}

	rank, err := api.svc.NextRank(ctx.Request().Context(), userID)
	if err != nil {
		return &nextRankError{errors.Wrap(err, "getting next rank")}
	}
	return ctx.JSON(http.StatusOK, NextRankResponse{RankIndex: rank})
}

func (api *preferenceApi) retrieve(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	saveID, err := parseID(ctx, "saveId", "save_id")
	if err != nil {
		return err
	}

	sp, err := api.svc.Get(ctx.Request().Context(), saveID, userID)
	if err != nil {
		return errors.Wrap(err, "getting saved project")
	}
	return ctx.JSON(http.StatusOK, SavedProjectResponse{SavedProject: sp})
}

func (api *preferenceApi) update(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	saveID, err := parseID(ctx, "saveId", "save_id")
	if err != nil {
		return err
	}

	var data preference.UpdateSavedProject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSavedProject")
	}

	sp, err := api.svc.UpdateDescription(ctx.Request().Context(), saveID, userID, data)
	if err != nil {
		return errors.Wrap(err, "updating saved project")
	}
	return ctx.JSON(http.StatusOK, SavedProjectResponse{SavedProject: sp})
}

func (api *preferenceApi) destroy(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	saveID, err := parseID(ctx, "saveId", "save_id")
	if err != nil {
		return err
	}

	if err = api.svc.Remove(ctx.Request().Context(), saveID, userID); err != nil {
		return errors.Wrap(err, "removing saved project")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{})
}

func (api *preferenceApi) move(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}
	saveID, err := parseID(ctx, "saveId", "save_id")
	if err != nil {
		return err
	}

	var data MoveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveRequest")
	}

	saved, outcome, err := api.svc.Reorder(ctx.Request().Context(), preference.MoveSavedProject{
		SaveID:    saveID,
		UserID:    userID,
		Direction: data.Direction,
	})
	if err != nil {
		return errors.Wrap(err, "moving saved project")
	}
	return ctx.JSON(http.StatusOK, MoveResponse{Outcome: outcome.String(), SavedProjects: nonNil(saved)})
}

func (api *preferenceApi) repair(ctx echo.Context) error {
	userID, err := getContextUserID(ctx)
	if err != nil {
		return err
	}

	changed, err := api.svc.Repair(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "repairing ranks")
	}
	return ctx.JSON(http.StatusOK, RepairResponse{Changed: changed})
}

func (api *preferenceApi) rankReports(ctx echo.Context) error {
	reports, err := api.svc.CheckAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "checking ranks")
	}
	if reports == nil {
		reports = make([]preference.RankReport, 0)
	}
	return ctx.JSON(http.StatusOK, RankReportsResponse{Reports: reports})
}

func nonNil(saved []preference.SavedProject) []preference.SavedProject {
	if saved == nil {
		return make([]preference.SavedProject, 0)
	}
	return saved
}
