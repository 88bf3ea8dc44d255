package timetable

import (
	"fmt"
	"strings"

	"github.com/trezcool/scolarite/core"
)

// Grid is the weekly grid plans are scheduled on: days 1..Days, each split into
// the named Periods (in teaching order).
type Grid struct {
	Days    int
	Periods []string
}

func NewGrid(conf core.ScheduleConfig) Grid {
	periods := make([]string, 0, len(conf.Periods))
	for _, p := range conf.Periods {
		if p = core.CleanString(p); p != "" {
			periods = append(periods, p)
		}
	}
	return Grid{Days: conf.Days, Periods: periods}
}

// Cells returns every (day, period) of the grid in canonical order: day first, then period.
func (g Grid) Cells() []Cell {
	cells := make([]Cell, 0, g.Days*len(g.Periods))
	for day := 1; day <= g.Days; day++ {
		for _, p := range g.Periods {
			cells = append(cells, Cell{Day: day, Period: p})
		}
	}
	return cells
}

func (g Grid) periodIndex(period string) int {
	for i, p := range g.Periods {
		if p == period {
			return i
		}
	}
	return -1
}

// Validate checks that the slot lies on the grid.
func (g Grid) Validate(s Slot) error {
	if err := core.Validate.Struct(s); err != nil {
		return err
	}
	var flds []core.FieldError
	if s.Day < 1 || s.Day > g.Days {
		flds = append(flds, core.FieldError{
			Field: "day",
			Error: fmt.Sprintf("must be between 1 and %d", g.Days),
		})
	}
	if g.periodIndex(s.Period) < 0 {
		flds = append(flds, core.FieldError{
			Field: "period",
			Error: "must be one of " + strings.Join(g.Periods, ", "),
		})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// less orders two (day, period) pairs canonically.
func (g Grid) less(d1 int, p1 string, d2 int, p2 string) bool {
	if d1 != d2 {
		return d1 < d2
	}
	return g.periodIndex(p1) < g.periodIndex(p2)
}
