package exportsvc

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/timetable"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Table is a read-only projection of records: one row per record, in input order.
type Table struct {
	// Sheet names the sheet of a spreadsheet export.
	Sheet  string
	Title  string
	Header []string
	Rows   [][]string
}

// Write renders t in the given format.
func Write(w io.Writer, format string, t Table) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatPDF:
		return WritePDF(w, t)
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename returns a dated file name for an export, e.g. plans-20240901.csv.
func Filename(name, format string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", name, now.Format("20060102"), strings.ToLower(format))
}

var planHeader = []string{
	"id", "course_id", "teacher_id", "section_id", "roster_size", "hours", "semester",
	"status", "day", "period", "room_id", "conflict_reason",
}

func PlansTable(plans []timetable.CoursePlan) Table {
	t := Table{Sheet: "Plans", Title: "Course plans", Header: planHeader, Rows: make([][]string, 0, len(plans))}
	for _, p := range plans {
		var day, period, room string
		if p.Slot != nil {
			day = timetable.DayName(p.Slot.Day)
			period = p.Slot.Period
			room = p.Slot.RoomID
		}
		t.Rows = append(t.Rows, []string{
			p.ID, p.CourseID, p.TeacherID, p.SectionID,
			strconv.Itoa(p.RosterSize), strconv.Itoa(p.Hours), p.Semester,
			p.Status, day, period, room, p.ConflictReason.String,
		})
	}
	return t
}

var gradeHeader = []string{
	"id", "course_id", "teacher_id", "semester", "students", "mean", "max", "min",
	"pass_rate", "excellence_rate", "audit_status", "publish_status", "anomaly_type",
}

func GradesTable(records []grade.GradeRecord) Table {
	t := Table{Sheet: "Grades", Title: "Grade records", Header: gradeHeader, Rows: make([][]string, 0, len(records))}
	for _, g := range records {
		st := g.Statistics()
		t.Rows = append(t.Rows, []string{
			g.ID, g.CourseID, g.TeacherID, g.Semester, strconv.Itoa(st.Count),
			decimal(st.Mean), decimal(st.Max), decimal(st.Min),
			decimal(st.PassRate), decimal(st.ExcellenceRate),
			g.AuditStatus, g.PublishStatus, g.AnomalyType.String,
		})
	}
	return t
}

var scoreHeader = []string{"grade_id", "course_id", "semester", "student_id", "score"}

// ScoresTable lists every student score of the records, record by record.
func ScoresTable(records []grade.GradeRecord) Table {
	t := Table{Sheet: "Scores", Title: "Student scores", Header: scoreHeader, Rows: make([][]string, 0)}
	for _, g := range records {
		for _, s := range g.Scores {
			t.Rows = append(t.Rows, []string{g.ID, g.CourseID, g.Semester, s.StudentID, decimal(s.Score)})
		}
	}
	return t
}

// TimetableTable lays a weekly grid out with one row per period and one column per day.
func TimetableTable(title string, grid timetable.Grid, cells []timetable.Cell) Table {
	header := []string{"period"}
	for day := 1; day <= grid.Days; day++ {
		header = append(header, timetable.DayName(day))
	}
	t := Table{Sheet: "Timetable", Title: title, Header: header, Rows: make([][]string, 0, len(grid.Periods))}
	for _, period := range grid.Periods {
		row := make([]string, 1, len(header))
		row[0] = period
		for day := 1; day <= grid.Days; day++ {
			var labels []string
			for _, c := range cells {
				if c.Day != day || c.Period != period {
					continue
				}
				for _, p := range c.Plans {
					labels = append(labels, fmt.Sprintf("%s %s @%s", p.CourseID, p.SectionID, p.Slot.RoomID))
				}
			}
			row = append(row, strings.Join(labels, " / "))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func decimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
