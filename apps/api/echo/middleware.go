package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// ctxUserOrAdminMiddleware lets a user through to their own saved projects only (the `:userId` path param).
// Admins may reach anybody's. Other users get a 404 so that nothing is learnt about the path.
func ctxUserOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userID, err := parseID(ctx, "userId", "user_id")
			if err != nil {
				return err
			}

			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsAdmin {
				ctxUserID, err := claims.UserID()
				if err != nil {
					return err
				}
				if ctxUserID != userID {
					return errHttpNotFound
				}
			}

			ctx.Set(contextUserIDKey, userID)
			return next(ctx)
		}
	}
}

// parseID reads the positive integer path param `param`; errors are reported against `field`.
func parseID(ctx echo.Context, param, field string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be a positive integer"})
	}
	return id, nil
}
