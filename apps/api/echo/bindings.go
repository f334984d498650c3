package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innovalab/center/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads a comma separated list of fields, "-" prefixed for descending order (e.g. `?ordering=-precio,titulo`).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID parses a numeric path param. Clients sometimes send the route placeholder itself (":id"),
// so a leading colon is tolerated.
func pathID(ctx echo.Context, name string) (int64, error) {
	raw := strings.TrimPrefix(ctx.Param(name), ":")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func bodyLimit(size int64) string {
	return strconv.FormatInt(size, 10) + "B"
}
