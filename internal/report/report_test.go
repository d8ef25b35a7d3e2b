package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
	"github.com/p-n-ai/pai-notebooks/internal/progress"
	"github.com/p-n-ai/pai-notebooks/internal/report"
)

func testCurriculum(t *testing.T) *curriculum.Curriculum {
	t.Helper()
	c := curriculum.New("Kids")
	if err := c.AddModule("python_basics", "Python Basics", "First steps"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	for _, l := range []curriculum.Lesson{
		{ID: "hello", Title: "Hello, Python!", Topic: "print"},
		{ID: "variables", Title: "Variables", Topic: "variables", Difficulty: curriculum.Intermediate, Prerequisites: []string{"hello"}},
	} {
		if err := c.AddLesson("python_basics", l); err != nil {
			t.Fatalf("AddLesson() error = %v", err)
		}
	}
	return c
}

// reopen round-trips the workbook through its serialized form.
func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	out, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	t.Cleanup(func() { out.Close() })
	return out
}

func rows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	got, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", sheet, err)
	}
	return got
}

func TestCurriculumWorkbook(t *testing.T) {
	f, err := report.CurriculumWorkbook(testCurriculum(t).Export())
	if err != nil {
		t.Fatalf("CurriculumWorkbook() error = %v", err)
	}
	f = reopen(t, f)

	if diff := cmp.Diff([]string{"Modules", "Lessons"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	modules := rows(t, f, report.SheetModules)
	wantModules := [][]string{
		{"Module", "Name", "Description", "Lessons", "Lesson IDs"},
		{"python_basics", "Python Basics", "First steps", "2", "hello, variables"},
	}
	if diff := cmp.Diff(wantModules, modules); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}

	lessons := rows(t, f, report.SheetLessons)
	if len(lessons) != 3 {
		t.Fatalf("Lessons rows = %d, want 3", len(lessons))
	}
	want := []string{"variables", "python_basics", "Variables", "variables", "intermediate", "15", "100", "hello"}
	if diff := cmp.Diff(want, lessons[2]); diff != "" {
		t.Errorf("variables row mismatch (-want +got):\n%s", diff)
	}
}

func TestProgressWorkbook(t *testing.T) {
	ctx := context.Background()
	c := testCurriculum(t)
	catalog := badge.NewCatalog()
	engine, err := progress.NewEngine(progress.EngineConfig{
		Lessons: c,
		Badges:  catalog,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	score := 95
	engine.StartLesson(ctx, "ada", "hello")
	engine.CompleteLesson(ctx, "ada", "hello", 100, &score)
	engine.AwardBadge(ctx, "ada", "first_lesson")

	p, err := engine.ExportProgress(ctx, "ada")
	if err != nil {
		t.Fatalf("ExportProgress() error = %v", err)
	}
	s, err := engine.Summary(ctx, "ada")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	f, err := report.ProgressWorkbook(p, s, report.Lookup{Lessons: c, Badges: catalog})
	if err != nil {
		t.Fatalf("ProgressWorkbook() error = %v", err)
	}
	f = reopen(t, f)

	if diff := cmp.Diff([]string{"Summary", "Lessons", "Activity", "Badges"}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	summary := rows(t, f, report.SheetSummary)
	values := map[string]string{}
	for _, r := range summary[1:] {
		values[r[0]] = r[1]
	}
	for k, want := range map[string]string{
		"Learner":            "ada",
		"Lessons completed":  "1",
		"Total points":       "50",
		"Average quiz score": "95.0",
		"Badges earned":      "1",
	} {
		if values[k] != want {
			t.Errorf("Summary %q = %q, want %q", k, values[k], want)
		}
	}

	lessons := rows(t, f, report.SheetLessons)
	if len(lessons) != 2 || lessons[1][0] != "hello" || lessons[1][1] != "Hello, Python!" || lessons[1][2] != "completed" {
		t.Errorf("Lessons rows = %v", lessons)
	}

	activity := rows(t, f, report.SheetActivity)
	if len(activity) != 4 {
		t.Errorf("Activity rows = %d, want 4 (header + 3)", len(activity))
	}

	badges := rows(t, f, report.SheetBadges)
	if len(badges) != 2 || badges[1][0] != "first_lesson" || badges[1][3] != "50" {
		t.Errorf("Badges rows = %v", badges)
	}
}

func TestProgressWorkbook_NoLookup(t *testing.T) {
	p := &progress.LearnerProgress{
		LearnerID: "ada",
		Lessons:   map[string]progress.LessonRecord{"hello": {LessonID: "hello", Status: progress.StatusInProgress}},
		Badges:    []string{"first_lesson"},
	}
	f, err := report.ProgressWorkbook(p, progress.Summary{LearnerID: "ada"}, report.Lookup{})
	if err != nil {
		t.Fatalf("ProgressWorkbook() error = %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue(report.SheetBadges, "A2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if v != "first_lesson" {
		t.Errorf("A2 = %q, want first_lesson", v)
	}
}

func TestProgressWorkbook_Nil(t *testing.T) {
	if _, err := report.ProgressWorkbook(nil, progress.Summary{}, report.Lookup{}); err == nil {
		t.Fatal("expected error for nil progress")
	}
}
