package progress_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
	"github.com/p-n-ai/pai-notebooks/internal/progress"
)

func pythonBasics(t *testing.T) *curriculum.Curriculum {
	t.Helper()
	c := curriculum.New("Kids")
	if err := c.AddModule("python_basics", "Python Basics", "First steps"); err != nil {
		t.Fatalf("AddModule() error = %v", err)
	}
	for _, l := range []curriculum.Lesson{
		{ID: "hello", Title: "Hello, Python!", Topic: "print"},
		{ID: "variables", Title: "Variables", Topic: "variables", Prerequisites: []string{"hello"}},
		{ID: "loops", Title: "Loops", Topic: "loops", Prerequisites: []string{"variables"}},
	} {
		if err := c.AddLesson("python_basics", l); err != nil {
			t.Fatalf("AddLesson(%s) error = %v", l.ID, err)
		}
	}
	return c
}

func newEngine(t *testing.T, opts ...func(*progress.EngineConfig)) *progress.Engine {
	t.Helper()
	cfg := progress.EngineConfig{
		Lessons: pythonBasics(t),
		Badges:  badge.NewCatalog(),
		Now:     func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := progress.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func intPtr(v int) *int { return &v }

func TestNewEngine_RequiresDependencies(t *testing.T) {
	if _, err := progress.NewEngine(progress.EngineConfig{Badges: badge.NewCatalog()}); err == nil {
		t.Error("NewEngine() without lessons should fail")
	}
	if _, err := progress.NewEngine(progress.EngineConfig{Lessons: curriculum.New("x")}); err == nil {
		t.Error("NewEngine() without badges should fail")
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c := pythonBasics(t)

	path, err := c.GeneratePath("variables")
	if err != nil {
		t.Fatalf("GeneratePath() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hello", "variables"}, path); diff != "" {
		t.Errorf("GeneratePath() mismatch (-want +got):\n%s", diff)
	}

	engine := newEngine(t, func(cfg *progress.EngineConfig) { cfg.Lessons = c })

	if _, err := engine.StartLesson(ctx, "ada", "hello"); err != nil {
		t.Fatalf("StartLesson() error = %v", err)
	}
	if _, err := engine.CompleteLesson(ctx, "ada", "hello", 100, intPtr(95)); err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}
	if _, err := engine.AddPoints(ctx, "ada", 100, "finished hello"); err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}
	awarded, err := engine.AwardBadge(ctx, "ada", "first_lesson")
	if err != nil {
		t.Fatalf("AwardBadge() error = %v", err)
	}
	if !awarded {
		t.Error("AwardBadge() = false, want true on first award")
	}

	snap, err := engine.ExportProgress(ctx, "ada")
	if err != nil {
		t.Fatalf("ExportProgress() error = %v", err)
	}
	if snap.TotalPoints != 150 {
		t.Errorf("TotalPoints = %d, want 150", snap.TotalPoints)
	}
	if diff := cmp.Diff([]string{"first_lesson"}, snap.Badges); diff != "" {
		t.Errorf("Badges mismatch (-want +got):\n%s", diff)
	}
	rec := snap.Lessons["hello"]
	if rec.Status != progress.StatusCompleted {
		t.Errorf("hello status = %q, want completed", rec.Status)
	}
	if rec.QuizScore == nil || *rec.QuizScore != 95 {
		t.Errorf("hello quiz score = %v, want 95", rec.QuizScore)
	}
	if rec.StartedAt == nil || rec.CompletedAt == nil {
		t.Error("hello timestamps should be set")
	}

	var kinds []progress.ActivityKind
	for _, a := range snap.Activity {
		kinds = append(kinds, a.Kind)
	}
	want := []progress.ActivityKind{
		progress.KindLessonStarted,
		progress.KindLessonCompleted,
		progress.KindPointsAdded,
		progress.KindBadgeAwarded,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("activity kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_StartLesson_Unknown(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	_, err := engine.StartLesson(ctx, "ada", "does_not_exist")
	if !errors.Is(err, progress.ErrUnknownLesson) {
		t.Fatalf("StartLesson() error = %v, want ErrUnknownLesson", err)
	}

	_, err = engine.ExportProgress(ctx, "ada")
	if !errors.Is(err, progress.ErrLearnerNotFound) {
		t.Errorf("ExportProgress() error = %v, want ErrLearnerNotFound (no partial record)", err)
	}
}

func TestEngine_StartLesson_UnknownLeavesExistingLearnerUnchanged(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	if _, err := engine.StartLesson(ctx, "ada", "hello"); err != nil {
		t.Fatalf("StartLesson() error = %v", err)
	}
	before, _ := engine.ExportProgress(ctx, "ada")

	if _, err := engine.StartLesson(ctx, "ada", "does_not_exist"); !errors.Is(err, progress.ErrUnknownLesson) {
		t.Fatalf("StartLesson() error = %v, want ErrUnknownLesson", err)
	}

	after, _ := engine.ExportProgress(ctx, "ada")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("progress changed after failed start (-before +after):\n%s", diff)
	}
}

func TestEngine_StartLesson_Idempotent(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	first, err := engine.StartLesson(ctx, "ada", "hello")
	if err != nil {
		t.Fatalf("StartLesson() error = %v", err)
	}
	second, err := engine.StartLesson(ctx, "ada", "hello")
	if err != nil {
		t.Fatalf("StartLesson() second call error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second start changed the record (-first +second):\n%s", diff)
	}

	snap, _ := engine.ExportProgress(ctx, "ada")
	if len(snap.Activity) != 1 {
		t.Errorf("activity entries = %d, want 1", len(snap.Activity))
	}
}

func TestEngine_StartLesson_DoesNotRegressCompleted(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	engine.StartLesson(ctx, "ada", "hello")
	engine.CompleteLesson(ctx, "ada", "hello", 100, nil)

	rec, err := engine.StartLesson(ctx, "ada", "hello")
	if err != nil {
		t.Fatalf("StartLesson() error = %v", err)
	}
	if rec.Status != progress.StatusCompleted {
		t.Errorf("status after restart = %q, want completed", rec.Status)
	}
}

func TestEngine_CompleteLesson_Errors(t *testing.T) {
	tests := []struct {
		name       string
		start      bool
		lesson     string
		percentage int
		quiz       *int
		wantErr    error
	}{
		{"percentage above range", true, "hello", 150, nil, progress.ErrInvalidRange},
		{"percentage below range", true, "hello", -1, nil, progress.ErrInvalidRange},
		{"negative quiz score", true, "hello", 100, intPtr(-1), progress.ErrInvalidRange},
		{"quiz score above range", true, "hello", 100, intPtr(101), progress.ErrInvalidRange},
		{"never started", false, "hello", 100, nil, progress.ErrInvalidLesson},
		{"unknown lesson", false, "nope", 100, nil, progress.ErrUnknownLesson},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			engine := newEngine(t)
			if tt.start {
				if _, err := engine.StartLesson(ctx, "ada", tt.lesson); err != nil {
					t.Fatalf("StartLesson() error = %v", err)
				}
			}
			_, err := engine.CompleteLesson(ctx, "ada", tt.lesson, tt.percentage, tt.quiz)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CompleteLesson() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_CompleteLesson_Terminal(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	engine.StartLesson(ctx, "ada", "hello")
	if _, err := engine.CompleteLesson(ctx, "ada", "hello", 80, intPtr(70)); err != nil {
		t.Fatalf("CompleteLesson() error = %v", err)
	}

	_, err := engine.CompleteLesson(ctx, "ada", "hello", 100, intPtr(100))
	if !errors.Is(err, progress.ErrInvalidLesson) {
		t.Fatalf("second CompleteLesson() error = %v, want ErrInvalidLesson", err)
	}
	if _, err := engine.LogTime(ctx, "ada", "hello", 5); !errors.Is(err, progress.ErrInvalidLesson) {
		t.Errorf("LogTime() on completed lesson error = %v, want ErrInvalidLesson", err)
	}

	snap, _ := engine.ExportProgress(ctx, "ada")
	rec := snap.Lessons["hello"]
	if rec.Status != progress.StatusCompleted || rec.CompletionPercentage != 80 || *rec.QuizScore != 70 {
		t.Errorf("completed record changed: %+v", rec)
	}
}

func TestEngine_LogTime(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	// Allowed before starting; the record stays not_started.
	rec, err := engine.LogTime(ctx, "ada", "hello", 4)
	if err != nil {
		t.Fatalf("LogTime() error = %v", err)
	}
	if rec.Status != progress.StatusNotStarted {
		t.Errorf("status = %q, want not_started", rec.Status)
	}

	rec, err = engine.StartLesson(ctx, "ada", "hello")
	if err != nil {
		t.Fatalf("StartLesson() error = %v", err)
	}
	if rec.Status != progress.StatusInProgress || rec.TimeSpentMinutes != 4 {
		t.Errorf("after start: %+v", rec)
	}

	rec, err = engine.LogTime(ctx, "ada", "hello", 6)
	if err != nil {
		t.Fatalf("LogTime() error = %v", err)
	}
	if rec.TimeSpentMinutes != 10 {
		t.Errorf("TimeSpentMinutes = %d, want 10", rec.TimeSpentMinutes)
	}

	if _, err := engine.LogTime(ctx, "ada", "hello", -1); !errors.Is(err, progress.ErrInvalidRange) {
		t.Errorf("LogTime(-1) error = %v, want ErrInvalidRange", err)
	}
}

func TestEngine_CompleteChallenge(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	if _, err := engine.CompleteChallenge(ctx, "ada", "hello", "print-name"); !errors.Is(err, progress.ErrInvalidLesson) {
		t.Fatalf("CompleteChallenge() before start error = %v, want ErrInvalidLesson", err)
	}

	engine.StartLesson(ctx, "ada", "hello")
	engine.CompleteChallenge(ctx, "ada", "hello", "print-name")
	rec, err := engine.CompleteChallenge(ctx, "ada", "hello", "print-name")
	if err != nil {
		t.Fatalf("CompleteChallenge() error = %v", err)
	}
	if diff := cmp.Diff([]string{"print-name"}, rec.ChallengesCompleted); diff != "" {
		t.Errorf("ChallengesCompleted mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_AddPoints(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	total := 0
	for _, amount := range []int{10, 0, 25} {
		got, err := engine.AddPoints(ctx, "ada", amount, "practice")
		if err != nil {
			t.Fatalf("AddPoints(%d) error = %v", amount, err)
		}
		if got < total {
			t.Errorf("total decreased from %d to %d", total, got)
		}
		total = got
	}
	if total != 35 {
		t.Errorf("total = %d, want 35", total)
	}

	if _, err := engine.AddPoints(ctx, "ada", -5, "penalty"); !errors.Is(err, progress.ErrInvalidRange) {
		t.Fatalf("AddPoints(-5) error = %v, want ErrInvalidRange", err)
	}
	snap, _ := engine.ExportProgress(ctx, "ada")
	if snap.TotalPoints != 35 {
		t.Errorf("TotalPoints after rejected add = %d, want 35", snap.TotalPoints)
	}
}

func TestEngine_AddPoints_Overflow(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	if _, err := engine.AddPoints(ctx, "ada", math.MaxInt, "big"); err != nil {
		t.Fatalf("AddPoints(MaxInt) error = %v", err)
	}
	if _, err := engine.AddPoints(ctx, "ada", 1, "one more"); !errors.Is(err, progress.ErrInvalidRange) {
		t.Fatalf("AddPoints(1) error = %v, want ErrInvalidRange", err)
	}
	if _, err := engine.AddPoints(ctx, "ada", 0, "nothing"); err != nil {
		t.Fatalf("AddPoints(0) error = %v", err)
	}

	snap, err := engine.ExportProgress(ctx, "ada")
	if err != nil {
		t.Fatalf("ExportProgress() error = %v", err)
	}
	if snap.TotalPoints != math.MaxInt {
		t.Errorf("TotalPoints = %d, want %d", snap.TotalPoints, math.MaxInt)
	}
	if n := len(snap.Activity); n != 2 {
		t.Errorf("len(Activity) = %d, want 2", n)
	}
}

func TestEngine_AwardBadge_Overflow(t *testing.T) {
	ctx := context.Background()
	catalog := badge.NewEmptyCatalog()
	if _, err := catalog.CreateCustom(badge.Badge{ID: "gold_star", Name: "Gold Star", Points: 5}); err != nil {
		t.Fatalf("CreateCustom() error = %v", err)
	}
	engine := newEngine(t, func(cfg *progress.EngineConfig) { cfg.Badges = catalog })

	if _, err := engine.AddPoints(ctx, "ada", math.MaxInt-4, "almost full"); err != nil {
		t.Fatalf("AddPoints() error = %v", err)
	}
	awarded, err := engine.AwardBadge(ctx, "ada", "gold_star")
	if !errors.Is(err, progress.ErrInvalidRange) {
		t.Fatalf("AwardBadge() error = %v, want ErrInvalidRange", err)
	}
	if awarded {
		t.Error("AwardBadge() awarded = true on overflow")
	}

	snap, _ := engine.ExportProgress(ctx, "ada")
	if snap.HasBadge("gold_star") {
		t.Error("badge recorded despite rejected award")
	}
	if snap.TotalPoints != math.MaxInt-4 {
		t.Errorf("TotalPoints = %d, want %d", snap.TotalPoints, math.MaxInt-4)
	}
}

func TestEngine_AwardBadge_Idempotent(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	once := newEngine(t)
	if _, err := once.AwardBadge(ctx, "ada", "perfect_quiz"); err != nil {
		t.Fatalf("AwardBadge() error = %v", err)
	}
	onceSnap, _ := once.ExportProgress(ctx, "ada")

	for i := 0; i < 2; i++ {
		if _, err := engine.AwardBadge(ctx, "ada", "perfect_quiz"); err != nil {
			t.Fatalf("AwardBadge() call %d error = %v", i+1, err)
		}
	}
	twiceSnap, _ := engine.ExportProgress(ctx, "ada")

	if twiceSnap.TotalPoints != onceSnap.TotalPoints || twiceSnap.TotalPoints != 150 {
		t.Errorf("TotalPoints once = %d, twice = %d, want 150", onceSnap.TotalPoints, twiceSnap.TotalPoints)
	}
	if diff := cmp.Diff(onceSnap.Badges, twiceSnap.Badges); diff != "" {
		t.Errorf("Badges differ (-once +twice):\n%s", diff)
	}
}

func TestEngine_AwardBadge_Unknown(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	_, err := engine.AwardBadge(ctx, "ada", "nope")
	if !errors.Is(err, progress.ErrUnknownBadge) {
		t.Fatalf("AwardBadge() error = %v, want ErrUnknownBadge", err)
	}
}

func TestEngine_AwardBadge_CustomCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := badge.NewEmptyCatalog()
	if _, err := catalog.CreateCustom(badge.Badge{ID: "gold_star", Name: "Gold Star", Points: 5}); err != nil {
		t.Fatalf("CreateCustom() error = %v", err)
	}
	engine := newEngine(t, func(cfg *progress.EngineConfig) { cfg.Badges = catalog })

	if _, err := engine.AwardBadge(ctx, "ada", "first_lesson"); !errors.Is(err, progress.ErrUnknownBadge) {
		t.Errorf("AwardBadge(first_lesson) error = %v, want ErrUnknownBadge in empty catalog", err)
	}
	if _, err := engine.AwardBadge(ctx, "ada", "gold_star"); err != nil {
		t.Fatalf("AwardBadge(gold_star) error = %v", err)
	}
	snap, _ := engine.ExportProgress(ctx, "ada")
	if snap.TotalPoints != 5 {
		t.Errorf("TotalPoints = %d, want 5", snap.TotalPoints)
	}
}

func TestEngine_Summary(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	engine.StartLesson(ctx, "ada", "hello")
	engine.LogTime(ctx, "ada", "hello", 12)
	engine.CompleteLesson(ctx, "ada", "hello", 100, intPtr(90))
	engine.StartLesson(ctx, "ada", "variables")
	engine.LogTime(ctx, "ada", "variables", 3)
	engine.CompleteLesson(ctx, "ada", "variables", 100, intPtr(0))
	engine.StartLesson(ctx, "ada", "loops")
	engine.AwardBadge(ctx, "ada", "first_lesson")

	s, err := engine.Summary(ctx, "ada")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if s.LessonsStarted != 3 || s.LessonsCompleted != 2 {
		t.Errorf("started/completed = %d/%d, want 3/2", s.LessonsStarted, s.LessonsCompleted)
	}
	if s.TotalMinutes != 15 {
		t.Errorf("TotalMinutes = %d, want 15", s.TotalMinutes)
	}
	if s.AverageQuizScore == nil || *s.AverageQuizScore != 45 {
		t.Errorf("AverageQuizScore = %v, want 45 (zero scores count)", s.AverageQuizScore)
	}
	if s.BadgeCount != 1 || s.TotalPoints != 50 {
		t.Errorf("BadgeCount = %d, TotalPoints = %d", s.BadgeCount, s.TotalPoints)
	}

	if _, err := engine.Summary(ctx, "nobody"); !errors.Is(err, progress.ErrLearnerNotFound) {
		t.Errorf("Summary(nobody) error = %v, want ErrLearnerNotFound", err)
	}
}

func TestEngine_AvailableLessons(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	ids := func(ls []curriculum.Lesson) []string {
		var out []string
		for _, l := range ls {
			out = append(out, l.ID)
		}
		return out
	}

	got, err := engine.AvailableLessons(ctx, "ada")
	if err != nil {
		t.Fatalf("AvailableLessons() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hello"}, ids(got)); diff != "" {
		t.Errorf("fresh learner mismatch (-want +got):\n%s", diff)
	}

	engine.StartLesson(ctx, "ada", "hello")
	got, _ = engine.AvailableLessons(ctx, "ada")
	if len(got) != 0 {
		t.Errorf("with hello in progress, available = %v, want none", ids(got))
	}

	engine.CompleteLesson(ctx, "ada", "hello", 100, nil)
	got, _ = engine.AvailableLessons(ctx, "ada")
	if diff := cmp.Diff([]string{"variables"}, ids(got)); diff != "" {
		t.Errorf("after hello mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_EmitsEvents(t *testing.T) {
	ctx := context.Background()
	events := progress.NewMemoryEventLogger()
	engine := newEngine(t, func(cfg *progress.EngineConfig) { cfg.Events = events })

	engine.StartLesson(ctx, "ada", "hello")
	engine.AwardBadge(ctx, "ada", "first_lesson")
	engine.AwardBadge(ctx, "ada", "first_lesson")

	got := events.Events()
	if len(got) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(got))
	}
	if got[1].Kind != progress.KindBadgeAwarded || got[1].Data["badge_id"] != "first_lesson" {
		t.Errorf("second event = %+v, want badge_awarded first_lesson", got[1])
	}
	if got[1].LearnerID != "ada" {
		t.Errorf("LearnerID = %q, want ada", got[1].LearnerID)
	}
}

type failingLogger struct{}

func (failingLogger) LogEvent(context.Context, progress.Event) error {
	return errors.New("sink down")
}

func TestEngine_EventFailureDoesNotFailCall(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t, func(cfg *progress.EngineConfig) { cfg.Events = failingLogger{} })

	if _, err := engine.AddPoints(ctx, "ada", 10, "x"); err != nil {
		t.Fatalf("AddPoints() error = %v, want nil despite event failure", err)
	}
}

func TestEngine_ExportIsDetached(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	engine.StartLesson(ctx, "ada", "hello")
	snap, _ := engine.ExportProgress(ctx, "ada")
	snap.TotalPoints = 9999
	snap.Badges = append(snap.Badges, "forged")
	rec := snap.Lessons["hello"]
	rec.Status = progress.StatusCompleted
	snap.Lessons["hello"] = rec

	again, _ := engine.ExportProgress(ctx, "ada")
	if again.TotalPoints != 0 || len(again.Badges) != 0 || again.Lessons["hello"].Status != progress.StatusInProgress {
		t.Errorf("engine state changed through snapshot: %+v", again)
	}
}

func TestEngine_LearnersAreIndependent(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)

	engine.StartLesson(ctx, "ada", "hello")
	engine.AddPoints(ctx, "grace", 7, "bonus")

	ada, _ := engine.ExportProgress(ctx, "ada")
	grace, _ := engine.ExportProgress(ctx, "grace")

	ids, err := engine.Learners(ctx)
	if err != nil {
		t.Fatalf("Learners() error = %v", err)
	}
	if diff := cmp.Diff([]string{"ada", "grace"}, ids); diff != "" {
		t.Errorf("Learners() mismatch (-want +got):\n%s", diff)
	}
	if ada.TotalPoints != 0 || len(grace.Lessons) != 0 || grace.TotalPoints != 7 {
		t.Errorf("learners leaked into each other: ada=%+v grace=%+v", ada, grace)
	}
}
