package main

import (
	"bytes"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/timetable"
	exportsvc "github.com/trezcool/scolarite/services/export"
)

var ErrUnknownExport = errors.New("unknown export")

func (cli *commandLine) table(what string) (exportsvc.Table, error) {
	switch what {
	case "plans":
		plans, err := cli.app.Registry.List(timetable.PlanFilter{})
		if err != nil {
			return exportsvc.Table{}, errors.Wrap(err, "listing plans")
		}
		return exportsvc.PlansTable(plans), nil
	case "timetable":
		cells, err := cli.app.Registry.Timetable(timetable.PlanFilter{})
		if err != nil {
			return exportsvc.Table{}, errors.Wrap(err, "building timetable")
		}
		return exportsvc.TimetableTable("Timetable", cli.app.Scheduler.Grid(), cells), nil
	case "grades":
		records, err := cli.app.Grades.List(grade.QueryFilter{})
		if err != nil {
			return exportsvc.Table{}, errors.Wrap(err, "listing grade records")
		}
		return exportsvc.GradesTable(records), nil
	}
	return exportsvc.Table{}, errors.Wrapf(ErrUnknownExport, "%q", what)
}

func (cli *commandLine) export(what, format, out string) error {
	what = strings.ToLower(strings.TrimSpace(what))
	format = strings.ToLower(strings.TrimSpace(format))

	t, err := cli.table(what)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := exportsvc.Write(&buf, format, t); err != nil {
		return err
	}
	if out == "" {
		out = exportsvc.Filename(what, format, time.Now())
	}
	if err := atomic.WriteFile(out, &buf); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	cli.printf("%d rows written to %s\n", len(t.Rows), out)
	return nil
}
