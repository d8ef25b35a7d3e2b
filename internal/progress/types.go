package progress

import (
	"maps"
	"time"
)

// Status is the lifecycle state of one lesson for one learner.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ActivityKind names an entry in the activity log.
type ActivityKind string

const (
	KindLessonStarted      ActivityKind = "lesson_started"
	KindLessonCompleted    ActivityKind = "lesson_completed"
	KindPointsAdded        ActivityKind = "points_added"
	KindBadgeAwarded       ActivityKind = "badge_awarded"
	KindTimeLogged         ActivityKind = "time_logged"
	KindChallengeCompleted ActivityKind = "challenge_completed"
)

// LessonRecord is a learner's progress on a single lesson.
type LessonRecord struct {
	LessonID             string     `json:"lesson_id"`
	Status               Status     `json:"status"`
	StartedAt            *time.Time `json:"start_ts"`
	CompletedAt          *time.Time `json:"completion_ts"`
	CompletionPercentage int        `json:"percentage"`
	QuizScore            *int       `json:"quiz_score"`
	TimeSpentMinutes     int        `json:"time_spent"`
	ChallengesCompleted  []string   `json:"challenges_completed"`
}

func (r LessonRecord) clone() LessonRecord {
	if r.StartedAt != nil {
		t := *r.StartedAt
		r.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		r.CompletedAt = &t
	}
	if r.QuizScore != nil {
		s := *r.QuizScore
		r.QuizScore = &s
	}
	r.ChallengesCompleted = append([]string{}, r.ChallengesCompleted...)
	return r
}

// ActivityEntry is one append-only log line.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      ActivityKind   `json:"kind"`
	Payload   map[string]any `json:"payload"`
}

// LearnerProgress is everything recorded for one learner.
type LearnerProgress struct {
	LearnerID   string                  `json:"learner_id"`
	CreatedAt   time.Time               `json:"created_at"`
	Lessons     map[string]LessonRecord `json:"lessons"`
	TotalPoints int                     `json:"total_points"`
	Badges      []string                `json:"badges"`
	Activity    []ActivityEntry         `json:"activity_log"`
}

func newLearnerProgress(learnerID string, now time.Time) *LearnerProgress {
	return &LearnerProgress{
		LearnerID: learnerID,
		CreatedAt: now,
		Lessons:   make(map[string]LessonRecord),
		Badges:    []string{},
		Activity:  []ActivityEntry{},
	}
}

// Clone returns a deep copy.
func (p *LearnerProgress) Clone() *LearnerProgress {
	out := &LearnerProgress{
		LearnerID:   p.LearnerID,
		CreatedAt:   p.CreatedAt,
		Lessons:     make(map[string]LessonRecord, len(p.Lessons)),
		TotalPoints: p.TotalPoints,
		Badges:      append([]string{}, p.Badges...),
		Activity:    make([]ActivityEntry, 0, len(p.Activity)),
	}
	for id, r := range p.Lessons {
		out.Lessons[id] = r.clone()
	}
	for _, a := range p.Activity {
		a.Payload = maps.Clone(a.Payload)
		out.Activity = append(out.Activity, a)
	}
	return out
}

// HasBadge reports whether the badge was already awarded.
func (p *LearnerProgress) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// StatusOf returns the lesson status, not_started when there is no record.
func (p *LearnerProgress) StatusOf(lessonID string) Status {
	r, ok := p.Lessons[lessonID]
	if !ok {
		return StatusNotStarted
	}
	return r.Status
}

// Summary aggregates a learner's progress.
type Summary struct {
	LearnerID        string   `json:"learner_id"`
	LessonsStarted   int      `json:"total_lessons_started"`
	LessonsCompleted int      `json:"total_lessons_completed"`
	TotalPoints      int      `json:"total_points"`
	TotalMinutes     int      `json:"total_time_minutes"`
	AverageQuizScore *float64 `json:"average_quiz_score"`
	BadgeCount       int      `json:"badges_earned"`
	Badges           []string `json:"badges"`
}

func summarize(p *LearnerProgress) Summary {
	s := Summary{
		LearnerID:   p.LearnerID,
		TotalPoints: p.TotalPoints,
		BadgeCount:  len(p.Badges),
		Badges:      append([]string{}, p.Badges...),
	}
	var scoreSum, scored int
	for _, r := range p.Lessons {
		if r.Status != StatusNotStarted {
			s.LessonsStarted++
		}
		if r.Status == StatusCompleted {
			s.LessonsCompleted++
		}
		s.TotalMinutes += r.TimeSpentMinutes
		if r.QuizScore != nil {
			scoreSum += *r.QuizScore
			scored++
		}
	}
	if scored > 0 {
		avg := float64(scoreSum) / float64(scored)
		s.AverageQuizScore = &avg
	}
	return s
}
