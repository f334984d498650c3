package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

// adminMiddleware only lets admins through. The 403 message echoes the caller's role.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return core.NewForbiddenError("Acceso denegado: se requiere rol de administrador (rol actual: " + claims.Role + ")")
		}
	}
}

// selfOrAdminMiddleware only lets through admins and the user whose id is the `param` path param.
func selfOrAdminMiddleware(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id, err := pathID(ctx, param)
			if err != nil {
				return err
			}
			if claims.IsAdmin() || claims.ID == id {
				return next(ctx)
			}
			return core.NewForbiddenError("Acceso denegado")
		}
	}
}
