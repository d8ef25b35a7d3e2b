package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// moduleDocument is the on-disk shape of one module file.
type moduleDocument struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Lessons     []Lesson `yaml:"lessons"`
}

// Loader builds a curriculum from module YAML files on the filesystem.
type Loader struct {
	rootDir       string
	curriculum    *Curriculum
	teachingNotes map[string]string
	mu            sync.RWMutex
}

// NewLoader creates a loader and loads every module under rootDir.
// Files are visited in lexical order, which fixes insertion order.
func NewLoader(rootDir, name string) (*Loader, error) {
	l := &Loader{
		rootDir:       rootDir,
		curriculum:    New(name),
		teachingNotes: make(map[string]string),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	ov := l.curriculum.Overview()
	slog.Info("curriculum loaded", "modules", ov.TotalModules, "lessons", ov.TotalLessons)
	return l, nil
}

// Curriculum returns the loaded curriculum graph.
func (l *Loader) Curriculum() *Curriculum {
	return l.curriculum
}

// TeachingNotes returns teaching notes for a module id.
func (l *Loader) TeachingNotes(moduleID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.teachingNotes[moduleID]
	return n, ok
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".teaching.md"):
			return l.loadTeachingNotes(path)
		case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
			if strings.HasSuffix(path, ".notes.yaml") {
				return nil // Free-form notes, not a module
			}
			return l.loadModule(path)
		}
		return nil
	})
}

func (l *Loader) loadModule(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc moduleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid module YAML", "path", path, "error", err)
		return nil
	}

	if doc.ID == "" {
		return nil // Not a module file
	}

	if err := l.curriculum.AddModule(doc.ID, doc.Name, doc.Description); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, lesson := range doc.Lessons {
		if err := l.curriculum.AddLesson(doc.ID, lesson); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (l *Loader) loadTeachingNotes(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Derive module ID from matching YAML file
	base := strings.TrimSuffix(path, ".teaching.md")
	var yamlData []byte
	for _, ext := range []string{".yaml", ".yml"} {
		if yamlData, err = os.ReadFile(base + ext); err == nil {
			break
		}
	}
	if yamlData == nil {
		return nil // No matching YAML, skip
	}

	var partial struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(yamlData, &partial); err != nil || partial.ID == "" {
		return nil
	}

	l.mu.Lock()
	l.teachingNotes[partial.ID] = string(data)
	l.mu.Unlock()

	return nil
}
