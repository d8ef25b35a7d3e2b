package curriculum

import (
	"fmt"
	"strings"
)

// Difficulty is an ordered lesson difficulty: Beginner < Intermediate < Advanced.
type Difficulty int

const (
	Beginner Difficulty = iota + 1
	Intermediate
	Advanced
)

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// ParseDifficulty parses a difficulty name, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner, nil
	case "intermediate":
		return Intermediate, nil
	case "advanced":
		return Advanced, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	if d < Beginner || d > Advanced {
		return nil, fmt.Errorf("invalid difficulty %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Lesson is the atomic unit of learning content.
type Lesson struct {
	ID               string     `yaml:"id" json:"id"`
	Title            string     `yaml:"title" json:"title"`
	Description      string     `yaml:"description" json:"description"`
	Topic            string     `yaml:"topic" json:"topic"`
	Difficulty       Difficulty `yaml:"difficulty" json:"difficulty"`
	EstimatedMinutes int        `yaml:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	Prerequisites    []string   `yaml:"prerequisites" json:"prerequisites"`
	LearningOutcomes []string   `yaml:"learning_outcomes" json:"learning_outcomes"`
	Tags             []string   `yaml:"tags" json:"tags"`
	Points           int        `yaml:"points" json:"points"`
}

const (
	defaultEstimatedMinutes = 15
	defaultLessonPoints     = 100
)

func (l Lesson) clone() Lesson {
	l.Prerequisites = cloneStrings(l.Prerequisites)
	l.LearningOutcomes = cloneStrings(l.LearningOutcomes)
	l.Tags = cloneStrings(l.Tags)
	return l
}

func (l Lesson) withDefaults() Lesson {
	if l.Difficulty == 0 {
		l.Difficulty = Beginner
	}
	if l.EstimatedMinutes == 0 {
		l.EstimatedMinutes = defaultEstimatedMinutes
	}
	if l.Points == 0 {
		l.Points = defaultLessonPoints
	}
	return l
}

// Module groups lessons. LessonIDs is in presentation order.
type Module struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	LessonIDs   []string `json:"lesson_ids"`
}

func (m Module) clone() Module {
	m.LessonIDs = cloneStrings(m.LessonIDs)
	return m
}

// Snapshot is the exported structure of a curriculum.
type Snapshot struct {
	Name    string   `json:"name"`
	Modules []Module `json:"modules"`
	Lessons []Lesson `json:"lessons"`
}

// ModuleOverview summarises one module.
type ModuleOverview struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LessonCount int    `json:"lesson_count"`
}

// Overview summarises the whole curriculum.
type Overview struct {
	Name         string           `json:"name"`
	TotalModules int              `json:"total_modules"`
	TotalLessons int              `json:"total_lessons"`
	Modules      []ModuleOverview `json:"modules"`
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
