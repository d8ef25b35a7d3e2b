// Package progress records what each learner has done: lesson lifecycle,
// points, badges and an append-only activity log.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
)

var (
	// ErrInvalidRange is returned for percentages, scores, minutes or
	// point amounts outside their allowed range.
	ErrInvalidRange = errors.New("value out of range")
	// ErrInvalidLesson is returned when a lesson transition's precondition
	// does not hold, e.g. completing a lesson that was never started.
	ErrInvalidLesson = errors.New("invalid lesson transition")

	ErrUnknownLesson = curriculum.ErrUnknownLesson
	ErrUnknownBadge  = badge.ErrUnknownBadge
)

// LessonIndex is the read side of the curriculum the engine validates against.
type LessonIndex interface {
	Lesson(id string) (curriculum.Lesson, bool)
	Lessons() []curriculum.Lesson
}

// BadgeCatalog resolves badge ids to metadata.
type BadgeCatalog interface {
	Get(id string) (badge.Badge, error)
}

// EngineConfig holds dependencies for the progress engine.
type EngineConfig struct {
	Lessons LessonIndex
	Badges  BadgeCatalog
	Store   Store            // default: in-memory
	Events  EventLogger      // default: discard
	Now     func() time.Time // default: time.Now
}

// Engine applies progress operations to learners held in a Store.
type Engine struct {
	lessons LessonIndex
	badges  BadgeCatalog
	store   Store
	events  EventLogger
	now     func() time.Time
	mu      sync.Mutex
}

// NewEngine creates a new progress engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Lessons == nil {
		return nil, fmt.Errorf("lesson index is required")
	}
	if cfg.Badges == nil {
		return nil, fmt.Errorf("badge catalog is required")
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		lessons: cfg.Lessons,
		badges:  cfg.Badges,
		store:   store,
		events:  events,
		now:     now,
	}, nil
}

// StartLesson moves a lesson from not_started to in_progress. Starting a
// lesson that is already in progress or completed is a logged no-op.
func (e *Engine) StartLesson(ctx context.Context, learnerID, lessonID string) (LessonRecord, error) {
	lesson, ok := e.lessons.Lesson(lessonID)
	if !ok {
		return LessonRecord{}, fmt.Errorf("%w: %s", ErrUnknownLesson, lessonID)
	}

	var out LessonRecord
	err := e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		rec, exists := p.Lessons[lessonID]
		if exists && rec.Status != StatusNotStarted {
			slog.Warn("lesson already started",
				"learner_id", learnerID,
				"lesson_id", lessonID,
				"status", string(rec.Status),
			)
			out = rec.clone()
			return false, nil
		}
		if !exists {
			rec = LessonRecord{LessonID: lessonID, ChallengesCompleted: []string{}}
		}
		rec.Status = StatusInProgress
		rec.StartedAt = &now
		p.Lessons[lessonID] = rec
		p.log(now, KindLessonStarted, map[string]any{"lesson_id": lessonID, "title": lesson.Title})
		out = rec.clone()
		return true, nil
	})
	return out, err
}

// CompleteLesson moves an in_progress lesson to completed. Completion is
// terminal. quizScore may be nil.
func (e *Engine) CompleteLesson(ctx context.Context, learnerID, lessonID string, percentage int, quizScore *int) (LessonRecord, error) {
	if _, ok := e.lessons.Lesson(lessonID); !ok {
		return LessonRecord{}, fmt.Errorf("%w: %s", ErrUnknownLesson, lessonID)
	}
	if percentage < 0 || percentage > 100 {
		return LessonRecord{}, fmt.Errorf("%w: completion percentage %d not in [0,100]", ErrInvalidRange, percentage)
	}
	if quizScore != nil && (*quizScore < 0 || *quizScore > 100) {
		return LessonRecord{}, fmt.Errorf("%w: quiz score %d not in [0,100]", ErrInvalidRange, *quizScore)
	}

	var out LessonRecord
	err := e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		rec := p.Lessons[lessonID]
		switch rec.Status {
		case StatusInProgress:
		case StatusCompleted:
			return false, fmt.Errorf("%w: lesson %s already completed", ErrInvalidLesson, lessonID)
		default:
			return false, fmt.Errorf("%w: lesson %s not started", ErrInvalidLesson, lessonID)
		}

		rec.Status = StatusCompleted
		rec.CompletedAt = &now
		rec.CompletionPercentage = percentage
		payload := map[string]any{"lesson_id": lessonID, "percentage": percentage}
		if quizScore != nil {
			score := *quizScore
			rec.QuizScore = &score
			payload["quiz_score"] = score
		}
		p.Lessons[lessonID] = rec
		p.log(now, KindLessonCompleted, payload)
		out = rec.clone()
		return true, nil
	})
	return out, err
}

// LogTime adds minutes to a lesson's time-spent accumulator. Valid before
// and during a lesson, never after completion.
func (e *Engine) LogTime(ctx context.Context, learnerID, lessonID string, minutes int) (LessonRecord, error) {
	if _, ok := e.lessons.Lesson(lessonID); !ok {
		return LessonRecord{}, fmt.Errorf("%w: %s", ErrUnknownLesson, lessonID)
	}
	if minutes < 0 {
		return LessonRecord{}, fmt.Errorf("%w: minutes must be non-negative, got %d", ErrInvalidRange, minutes)
	}

	var out LessonRecord
	err := e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		rec, exists := p.Lessons[lessonID]
		if !exists {
			rec = LessonRecord{LessonID: lessonID, Status: StatusNotStarted, ChallengesCompleted: []string{}}
		}
		if rec.Status == StatusCompleted {
			return false, fmt.Errorf("%w: lesson %s already completed", ErrInvalidLesson, lessonID)
		}
		rec.TimeSpentMinutes += minutes
		p.Lessons[lessonID] = rec
		p.log(now, KindTimeLogged, map[string]any{"lesson_id": lessonID, "minutes": minutes})
		out = rec.clone()
		return true, nil
	})
	return out, err
}

// CompleteChallenge records a finished code challenge on a started lesson.
// Recording the same challenge twice is a no-op.
func (e *Engine) CompleteChallenge(ctx context.Context, learnerID, lessonID, challengeID string) (LessonRecord, error) {
	if _, ok := e.lessons.Lesson(lessonID); !ok {
		return LessonRecord{}, fmt.Errorf("%w: %s", ErrUnknownLesson, lessonID)
	}
	if challengeID == "" {
		return LessonRecord{}, fmt.Errorf("challenge id is required")
	}

	var out LessonRecord
	err := e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		rec, exists := p.Lessons[lessonID]
		if !exists || rec.Status == StatusNotStarted {
			return false, fmt.Errorf("%w: lesson %s not started", ErrInvalidLesson, lessonID)
		}
		for _, c := range rec.ChallengesCompleted {
			if c == challengeID {
				out = rec.clone()
				return false, nil
			}
		}
		rec.ChallengesCompleted = append(rec.ChallengesCompleted, challengeID)
		p.Lessons[lessonID] = rec
		p.log(now, KindChallengeCompleted, map[string]any{"lesson_id": lessonID, "challenge_id": challengeID})
		out = rec.clone()
		return true, nil
	})
	return out, err
}

// AddPoints increases the learner's total. Totals never decrease.
func (e *Engine) AddPoints(ctx context.Context, learnerID string, amount int, reason string) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: points must be non-negative, got %d", ErrInvalidRange, amount)
	}

	var total int
	err := e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		if err := p.addPoints(amount); err != nil {
			return false, err
		}
		p.log(now, KindPointsAdded, map[string]any{"amount": amount, "reason": reason})
		total = p.TotalPoints
		return true, nil
	})
	return total, err
}

// AwardBadge gives a badge to a learner and adds its points. Awarding a
// badge the learner already holds changes nothing and returns false.
func (e *Engine) AwardBadge(ctx context.Context, learnerID, badgeID string) (bool, error) {
	b, err := e.badges.Get(badgeID)
	if err != nil {
		return false, err
	}

	var awarded bool
	err = e.update(ctx, learnerID, func(p *LearnerProgress, now time.Time) (bool, error) {
		if p.HasBadge(badgeID) {
			return false, nil
		}
		if err := p.addPoints(b.Points); err != nil {
			return false, err
		}
		p.Badges = append(p.Badges, badgeID)
		p.log(now, KindBadgeAwarded, map[string]any{"badge_id": badgeID, "name": b.Name, "points": b.Points})
		awarded = true
		return true, nil
	})
	return awarded, err
}

// ExportProgress returns a detached snapshot of a learner's progress.
func (e *Engine) ExportProgress(ctx context.Context, learnerID string) (*LearnerProgress, error) {
	return e.store.Load(ctx, learnerID)
}

// Learners lists the ids of learners with saved progress.
func (e *Engine) Learners(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Summary aggregates a learner's progress.
func (e *Engine) Summary(ctx context.Context, learnerID string) (Summary, error) {
	p, err := e.store.Load(ctx, learnerID)
	if err != nil {
		return Summary{}, err
	}
	return summarize(p), nil
}

// AvailableLessons lists lessons the learner has not started whose
// prerequisites are all completed. It is advisory; StartLesson does not
// enforce prerequisites.
func (e *Engine) AvailableLessons(ctx context.Context, learnerID string) ([]curriculum.Lesson, error) {
	p, err := e.store.Load(ctx, learnerID)
	if errors.Is(err, ErrLearnerNotFound) {
		p = newLearnerProgress(learnerID, e.now())
	} else if err != nil {
		return nil, err
	}

	var out []curriculum.Lesson
	for _, l := range e.lessons.Lessons() {
		if p.StatusOf(l.ID) != StatusNotStarted {
			continue
		}
		ready := true
		for _, pre := range l.Prerequisites {
			if p.StatusOf(pre) != StatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, l)
		}
	}
	return out, nil
}

// update loads (or creates) a learner, applies fn to a private copy and
// saves it only when fn reports a change without error.
func (e *Engine) update(ctx context.Context, learnerID string, fn func(p *LearnerProgress, now time.Time) (bool, error)) error {
	if learnerID == "" {
		return fmt.Errorf("learner id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	p, err := e.store.Load(ctx, learnerID)
	if errors.Is(err, ErrLearnerNotFound) {
		p = newLearnerProgress(learnerID, now)
	} else if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}

	logged := len(p.Activity)
	changed, err := fn(p, now)
	if err != nil || !changed {
		return err
	}

	if err := e.store.Save(ctx, p); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}

	for _, a := range p.Activity[logged:] {
		event := Event{ID: a.ID, LearnerID: learnerID, Kind: a.Kind, Data: a.Payload, CreatedAt: a.Timestamp}
		if err := e.events.LogEvent(ctx, event); err != nil {
			slog.Warn("failed to log activity event", "learner_id", learnerID, "kind", string(a.Kind), "error", err)
		}
	}
	return nil
}

func (p *LearnerProgress) addPoints(amount int) error {
	if amount > math.MaxInt-p.TotalPoints {
		return fmt.Errorf("%w: adding %d points to %d overflows the total", ErrInvalidRange, amount, p.TotalPoints)
	}
	p.TotalPoints += amount
	return nil
}

func (p *LearnerProgress) log(now time.Time, kind ActivityKind, payload map[string]any) {
	p.Activity = append(p.Activity, ActivityEntry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Kind:      kind,
		Payload:   payload,
	})
}
