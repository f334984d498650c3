package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/user"
)

func (s *server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users", jwt)
	ug.GET("/profile", s.getProfile)
	ug.PUT("/profile", s.updateProfile)
}

func (s *server) getProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	profile, err := s.deps.UserSvc.GetProfile(ctx.Request().Context(), claims.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, profile)
}

func (s *server) updateProfile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err = s.deps.UserSvc.UpdateProfile(ctx.Request().Context(), claims.ID, data); err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Perfil actualizado correctamente"})
}
