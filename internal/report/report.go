// Package report renders curricula and learner progress as Excel workbooks.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
	"github.com/p-n-ai/pai-notebooks/internal/progress"
)

// Sheet names.
const (
	SheetSummary    = "Summary"
	SheetLessons    = "Lessons"
	SheetActivity   = "Activity"
	SheetBadges     = "Badges"
	SheetModules    = "Modules"
	defaultSheet    = "Sheet1"
	timestampLayout = time.RFC3339
)

// LessonLookup resolves lesson metadata. *curriculum.Curriculum satisfies it.
type LessonLookup interface {
	Lesson(id string) (curriculum.Lesson, bool)
}

// BadgeLookup resolves badge metadata. *badge.Catalog satisfies it.
type BadgeLookup interface {
	Get(id string) (badge.Badge, error)
}

// Lookup supplies display names. Either field may be nil, in which case
// only ids are written.
type Lookup struct {
	Lessons LessonLookup
	Badges  BadgeLookup
}

// ProgressWorkbook builds a workbook describing one learner.
func ProgressWorkbook(p *progress.LearnerProgress, s progress.Summary, lookup Lookup) (*excelize.File, error) {
	if p == nil {
		return nil, fmt.Errorf("progress is nil")
	}
	w, err := newWorkbook(SheetSummary, SheetLessons, SheetActivity, SheetBadges)
	if err != nil {
		return nil, err
	}

	avg := "-"
	if s.AverageQuizScore != nil {
		avg = fmt.Sprintf("%.1f", *s.AverageQuizScore)
	}
	summary := [][]any{
		{"Learner", p.LearnerID},
		{"Created", p.CreatedAt.UTC().Format(timestampLayout)},
		{"Lessons started", s.LessonsStarted},
		{"Lessons completed", s.LessonsCompleted},
		{"Total points", s.TotalPoints},
		{"Total minutes", s.TotalMinutes},
		{"Average quiz score", avg},
		{"Badges earned", s.BadgeCount},
	}
	if err := w.table(SheetSummary, []any{"Metric", "Value"}, summary); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(p.Lessons))
	for id := range p.Lessons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lessons := make([][]any, 0, len(ids))
	for _, id := range ids {
		rec := p.Lessons[id]
		title := ""
		if lookup.Lessons != nil {
			if l, ok := lookup.Lessons.Lesson(id); ok {
				title = l.Title
			}
		}
		quiz := any("")
		if rec.QuizScore != nil {
			quiz = *rec.QuizScore
		}
		lessons = append(lessons, []any{
			id,
			title,
			string(rec.Status),
			formatTime(rec.StartedAt),
			formatTime(rec.CompletedAt),
			rec.CompletionPercentage,
			quiz,
			rec.TimeSpentMinutes,
			strings.Join(rec.ChallengesCompleted, ", "),
		})
	}
	if err := w.table(SheetLessons,
		[]any{"Lesson", "Title", "Status", "Started", "Completed", "Percentage", "Quiz score", "Minutes", "Challenges"},
		lessons,
	); err != nil {
		return nil, err
	}

	activity := make([][]any, 0, len(p.Activity))
	for _, a := range p.Activity {
		details, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("encoding activity %s: %w", a.ID, err)
		}
		activity = append(activity, []any{a.Timestamp.UTC().Format(timestampLayout), string(a.Kind), string(details)})
	}
	if err := w.table(SheetActivity, []any{"Timestamp", "Kind", "Details"}, activity); err != nil {
		return nil, err
	}

	badges := make([][]any, 0, len(p.Badges))
	for _, id := range p.Badges {
		row := []any{id, "", "", "", ""}
		if lookup.Badges != nil {
			if b, err := lookup.Badges.Get(id); err == nil {
				row = []any{id, b.Icon + " " + b.Name, string(b.Category), b.Points, b.Description}
			}
		}
		badges = append(badges, row)
	}
	if err := w.table(SheetBadges, []any{"Badge", "Name", "Category", "Points", "Description"}, badges); err != nil {
		return nil, err
	}

	return w.f, nil
}

// CurriculumWorkbook builds a workbook listing modules and lessons.
func CurriculumWorkbook(snap curriculum.Snapshot) (*excelize.File, error) {
	w, err := newWorkbook(SheetModules, SheetLessons)
	if err != nil {
		return nil, err
	}

	moduleOf := make(map[string]string)
	modules := make([][]any, 0, len(snap.Modules))
	for _, m := range snap.Modules {
		for _, id := range m.LessonIDs {
			moduleOf[id] = m.ID
		}
		modules = append(modules, []any{m.ID, m.Name, m.Description, len(m.LessonIDs), strings.Join(m.LessonIDs, ", ")})
	}
	if err := w.table(SheetModules, []any{"Module", "Name", "Description", "Lessons", "Lesson IDs"}, modules); err != nil {
		return nil, err
	}

	lessons := make([][]any, 0, len(snap.Lessons))
	for _, l := range snap.Lessons {
		lessons = append(lessons, []any{
			l.ID,
			moduleOf[l.ID],
			l.Title,
			l.Topic,
			l.Difficulty.String(),
			l.EstimatedMinutes,
			l.Points,
			strings.Join(l.Prerequisites, ", "),
		})
	}
	if err := w.table(SheetLessons,
		[]any{"Lesson", "Module", "Title", "Topic", "Difficulty", "Minutes", "Points", "Prerequisites"},
		lessons,
	); err != nil {
		return nil, err
	}

	return w.f, nil
}

type workbook struct {
	f      *excelize.File
	header int
}

func newWorkbook(sheets ...string) (*workbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, sheets[0]); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	for _, name := range sheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	f.SetActiveSheet(0)
	return &workbook{f: f, header: header}, nil
}

// table writes a bold header row followed by rows, and freezes the header.
func (w *workbook) table(sheet string, header []any, rows [][]any) error {
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	if err := w.f.SetRowStyle(sheet, 1, 1, w.header); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return w.f.SetColWidth(sheet, "A", last, 18)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
