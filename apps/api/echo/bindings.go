package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gleeworld/gleeworld/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
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

// Period is a `from`/`to` query range. Both bounds accept RFC3339 timestamps or YYYY-MM-DD dates.
type Period struct {
	From time.Time
	To   time.Time
}

func (p *Period) Bind(ctx echo.Context) error {
	var err error
	if p.From, err = parseQueryTime(ctx.QueryParam("from"), false); err != nil {
		return core.NewFieldError("from", err.Error())
	}
	if p.To, err = parseQueryTime(ctx.QueryParam("to"), true); err != nil {
		return core.NewFieldError("to", err.Error())
	}
	return nil
}

func parseQueryTime(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
