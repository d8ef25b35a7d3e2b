// Package badge holds the catalog of rewards a learner can earn.
package badge

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownBadge is returned when a badge id is not in the catalog.
	ErrUnknownBadge = errors.New("unknown badge")
	// ErrDuplicateID is returned when a badge id is already registered.
	ErrDuplicateID = errors.New("duplicate badge id")
	// ErrInvalidBadge is returned for badges with missing ids or negative points.
	ErrInvalidBadge = errors.New("invalid badge")
)

// Category groups badges for display. The set is content-defined.
type Category string

const (
	CategoryCompletion      Category = "completion"
	CategorySpeed           Category = "speed"
	CategoryPerfect         Category = "perfect"
	CategoryChallengeMaster Category = "challenge_master"
	CategoryStreak          Category = "streak"
	CategoryExplorer        Category = "explorer"
	CategoryCodeWarrior     Category = "code_warrior"
	CategoryQuizAce         Category = "quiz_ace"
)

// Badge is a point-valued achievement. Criteria is display text only.
type Badge struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	Icon        string   `json:"icon" yaml:"icon"`
	Points      int      `json:"points" yaml:"points"`
	Criteria    string   `json:"criteria" yaml:"criteria"`
}

// Catalog maps badge ids to their metadata.
type Catalog struct {
	badges map[string]Badge
	order  []string
	mu     sync.RWMutex
}

// NewCatalog creates a catalog seeded with the built-in badges.
func NewCatalog() *Catalog {
	c := &Catalog{badges: make(map[string]Badge)}
	for _, b := range builtins() {
		c.badges[b.ID] = b
		c.order = append(c.order, b.ID)
	}
	return c
}

// NewEmptyCatalog creates a catalog with no badges.
func NewEmptyCatalog() *Catalog {
	return &Catalog{badges: make(map[string]Badge)}
}

// Get returns a badge by id.
func (c *Catalog) Get(id string) (Badge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.badges[id]
	if !ok {
		return Badge{}, fmt.Errorf("%w: %s", ErrUnknownBadge, id)
	}
	return b, nil
}

// CreateCustom registers a new badge definition.
func (c *Catalog) CreateCustom(b Badge) (Badge, error) {
	if b.ID == "" {
		return Badge{}, fmt.Errorf("%w: id is required", ErrInvalidBadge)
	}
	if b.Points < 0 {
		return Badge{}, fmt.Errorf("%w: points must be non-negative, got %d", ErrInvalidBadge, b.Points)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.badges[b.ID]; exists {
		return Badge{}, fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
	}
	c.badges[b.ID] = b
	c.order = append(c.order, b.ID)
	return b, nil
}

// All returns every badge in registration order.
func (c *Catalog) All() []Badge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Badge, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.badges[id])
	}
	return out
}

// ByCategory returns badges of one category in registration order.
func (c *Catalog) ByCategory(cat Category) []Badge {
	var out []Badge
	for _, b := range c.All() {
		if b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// Display formats a badge for markdown output.
func Display(b Badge) string {
	return fmt.Sprintf("%s **%s** - %s (+%d points)", b.Icon, b.Name, b.Description, b.Points)
}
