package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/resource"
)

const resourceFileField = "archivo"

func (s *server) registerResourceAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	admin := adminMiddleware()
	rg := g.Group("/resources")

	rg.GET("/course/:courseId", s.listResources)
	rg.POST("/course/:courseId", s.addResource, jwt, admin)
	rg.DELETE("/:id", s.deleteResource, jwt, admin)
}

func (s *server) listResources(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	resources, err := s.deps.ResourceSvc.ListByCourse(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "listing resources")
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (s *server) addResource(ctx echo.Context) error {
	courseID, err := pathID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data resource.NewResource
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	var fileURL string
	if data.Kind == resource.KindFile {
		if fileURL, err = s.saveUpload(ctx, resourceFileField); err != nil {
			return errors.Wrap(err, "saving resource file")
		}
	}
	res, err := s.deps.ResourceSvc.Add(ctx.Request().Context(), courseID, data, fileURL)
	if err != nil {
		return errors.Wrap(err, "adding resource")
	}
	return ctx.JSON(http.StatusCreated, createdResponse{Message: "Recurso agregado correctamente", ID: res.ID})
}

func (s *server) deleteResource(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.ResourceSvc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Recurso eliminado"})
}
