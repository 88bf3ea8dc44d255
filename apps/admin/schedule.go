package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/timetable"
)

func (cli *commandLine) schedule() error {
	sum, err := cli.app.Scheduler.ScheduleAll()
	if err != nil {
		return errors.Wrap(err, "scheduling")
	}
	cli.app.Metrics.ObserveSchedule(sum)

	cli.printf("scheduled %d of %d plans\n", sum.Scheduled, sum.Attempted)
	for _, p := range sum.ScheduledPlans {
		cli.printf("  %s %s/%s: %s\n", p.ID, p.CourseID, p.SectionID, p.Slot)
	}
	for _, p := range sum.ConflictPlans {
		cli.printf("  %s %s/%s: %s\n", p.ID, p.CourseID, p.SectionID, p.ConflictReason.String)
	}
	return cli.app.Persist(context.Background())
}

func (cli *commandLine) conflicts() error {
	report, err := cli.app.Scheduler.ConflictReport()
	if err != nil {
		return errors.Wrap(err, "building conflict report")
	}
	if len(report) == 0 {
		cli.println("no conflicts")
		return nil
	}
	for _, c := range report {
		cli.printf("%s %s on %s %s: %s\n", c.Kind, c.ResourceID, timetable.DayName(c.Day), c.Period, strings.Join(c.PlanIDs, ", "))
	}
	return nil
}
