package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// saveUpload stores the multipart file sent under field and returns its URL.
// An empty URL means the request carried no such file.
func (s *server) saveUpload(ctx echo.Context, field string) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return "", nil
		}
		return "", errors.Wrap(err, "reading multipart file")
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening multipart file")
	}
	defer src.Close()

	return s.deps.Files.Save(ctx.Request().Context(), fh.Filename, src)
}
