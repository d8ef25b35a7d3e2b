// Package curriculum models modules, lessons and the prerequisite graph
// between lessons.
package curriculum

import (
	"container/heap"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrDuplicateID          = errors.New("duplicate id")
	ErrUnknownModule        = errors.New("unknown module")
	ErrUnknownLesson        = errors.New("unknown lesson")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrDanglingPrerequisite = errors.New("dangling prerequisite")
	ErrInvalidLesson        = errors.New("invalid lesson")
)

// Curriculum owns modules and a flat lesson index spanning all modules.
// Prerequisites are checked lazily by Validate and GeneratePath, so lessons
// may be added before the lessons they require.
type Curriculum struct {
	name        string
	modules     map[string]*Module
	moduleOrder []string
	lessons     map[string]Lesson
	lessonOrder []string
	position    map[string]int
	mu          sync.RWMutex
}

// New creates an empty curriculum.
func New(name string) *Curriculum {
	return &Curriculum{
		name:     name,
		modules:  make(map[string]*Module),
		lessons:  make(map[string]Lesson),
		position: make(map[string]int),
	}
}

// Name returns the curriculum name.
func (c *Curriculum) Name() string {
	return c.name
}

// AddModule creates an empty module.
func (c *Curriculum) AddModule(id, name, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.modules[id]; exists {
		return fmt.Errorf("%w: module %s", ErrDuplicateID, id)
	}
	c.modules[id] = &Module{ID: id, Name: name, Description: description, LessonIDs: []string{}}
	c.moduleOrder = append(c.moduleOrder, id)
	return nil
}

// AddLesson inserts a lesson into the graph and appends it to a module.
func (c *Curriculum) AddLesson(moduleID string, lesson Lesson) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lesson.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidLesson)
	}
	lesson = lesson.clone().withDefaults()
	if lesson.Difficulty < Beginner || lesson.Difficulty > Advanced {
		return fmt.Errorf("%w: %s has difficulty %d", ErrInvalidLesson, lesson.ID, int(lesson.Difficulty))
	}

	mod, ok := c.modules[moduleID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, moduleID)
	}
	if _, exists := c.lessons[lesson.ID]; exists {
		return fmt.Errorf("%w: lesson %s", ErrDuplicateID, lesson.ID)
	}

	c.lessons[lesson.ID] = lesson
	c.position[lesson.ID] = len(c.lessonOrder)
	c.lessonOrder = append(c.lessonOrder, lesson.ID)
	mod.LessonIDs = append(mod.LessonIDs, lesson.ID)
	return nil
}

// Lesson returns a lesson by id.
func (c *Curriculum) Lesson(id string) (Lesson, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lessons[id]
	if !ok {
		return Lesson{}, false
	}
	return l.clone(), true
}

// HasLesson reports whether id names a lesson in the graph.
func (c *Curriculum) HasLesson(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.lessons[id]
	return ok
}

// Module returns a module by id.
func (c *Curriculum) Module(id string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[id]
	if !ok {
		return Module{}, false
	}
	return m.clone(), true
}

// ModuleOf returns the module that contains a lesson.
func (c *Curriculum) ModuleOf(lessonID string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.moduleOrder {
		m := c.modules[id]
		for _, l := range m.LessonIDs {
			if l == lessonID {
				return m.clone(), true
			}
		}
	}
	return Module{}, false
}

// Lessons returns every lesson in insertion order.
func (c *Curriculum) Lessons() []Lesson {
	return c.filter(func(Lesson) bool { return true })
}

// LessonsByDifficulty returns lessons of one difficulty in insertion order.
func (c *Curriculum) LessonsByDifficulty(d Difficulty) []Lesson {
	return c.filter(func(l Lesson) bool { return l.Difficulty == d })
}

// LessonsByTopic returns lessons of one topic in insertion order.
func (c *Curriculum) LessonsByTopic(topic string) []Lesson {
	return c.filter(func(l Lesson) bool { return l.Topic == topic })
}

// Dependents returns the lessons that directly require id.
func (c *Curriculum) Dependents(id string) []Lesson {
	return c.filter(func(l Lesson) bool {
		for _, p := range l.Prerequisites {
			if p == id {
				return true
			}
		}
		return false
	})
}

func (c *Curriculum) filter(keep func(Lesson) bool) []Lesson {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Lesson
	for _, id := range c.lessonOrder {
		if l := c.lessons[id]; keep(l) {
			out = append(out, l.clone())
		}
	}
	return out
}

// Overview summarises module and lesson counts.
func (c *Curriculum) Overview() Overview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ov := Overview{
		Name:         c.name,
		TotalModules: len(c.modules),
		TotalLessons: len(c.lessons),
		Modules:      make([]ModuleOverview, 0, len(c.moduleOrder)),
	}
	for _, id := range c.moduleOrder {
		m := c.modules[id]
		ov.Modules = append(ov.Modules, ModuleOverview{ID: m.ID, Name: m.Name, LessonCount: len(m.LessonIDs)})
	}
	return ov
}

// Export returns a deep copy of the curriculum structure. It does not validate.
func (c *Curriculum) Export() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Name:    c.name,
		Modules: make([]Module, 0, len(c.moduleOrder)),
		Lessons: make([]Lesson, 0, len(c.lessonOrder)),
	}
	for _, id := range c.moduleOrder {
		snap.Modules = append(snap.Modules, c.modules[id].clone())
	}
	for _, id := range c.lessonOrder {
		snap.Lessons = append(snap.Lessons, c.lessons[id].clone())
	}
	return snap
}

// ValidationReport lists the problems found in the prerequisite graph.
// Both lists are in lesson insertion order.
type ValidationReport struct {
	// Dangling holds prerequisite ids that no lesson defines.
	Dangling []string `json:"dangling"`
	// Cyclic holds every lesson that sits on a prerequisite cycle.
	Cyclic []string `json:"cyclic"`
}

// OK reports whether the graph is well-formed.
func (r ValidationReport) OK() bool {
	return len(r.Dangling) == 0 && len(r.Cyclic) == 0
}

// Err returns nil for a well-formed graph, otherwise an error wrapping
// ErrDanglingPrerequisite and/or ErrCyclicDependency.
func (r ValidationReport) Err() error {
	var errs []error
	if len(r.Dangling) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDanglingPrerequisite, strings.Join(r.Dangling, ", ")))
	}
	if len(r.Cyclic) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(r.Cyclic, ", ")))
	}
	return errors.Join(errs...)
}

// Validate reports dangling prerequisites and every lesson on a cycle.
func (c *Curriculum) Validate() ValidationReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	report := ValidationReport{Dangling: []string{}, Cyclic: []string{}}
	seen := make(map[string]bool)
	for _, id := range c.lessonOrder {
		for _, p := range c.lessons[id].Prerequisites {
			if _, ok := c.lessons[p]; ok || seen[p] {
				continue
			}
			seen[p] = true
			report.Dangling = append(report.Dangling, p)
		}
	}

	report.Cyclic = c.cyclicLessons(c.lessonOrder, nil)
	return report
}

// cyclicLessons runs Tarjan's strongly connected components over roots and
// returns, in insertion order, every lesson in a component of size > 1 or
// with a self-edge. When within is non-nil, edges leaving it are ignored.
// Callers must hold c.mu.
func (c *Curriculum) cyclicLessons(roots []string, within map[string]bool) []string {
	var (
		next    int
		index   = make(map[string]int)
		low     = make(map[string]int)
		onStack = make(map[string]bool)
		stack   []string
		cyclic  = make(map[string]bool)
	)

	var connect func(v string)
	connect = func(v string) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		selfEdge := false
		for _, w := range c.lessons[v].Prerequisites {
			if _, ok := c.lessons[w]; !ok {
				continue
			}
			if within != nil && !within[w] {
				continue
			}
			if w == v {
				selfEdge = true
			}
			if _, visited := index[w]; !visited {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 || selfEdge {
			for _, w := range component {
				cyclic[w] = true
			}
		}
	}

	for _, id := range roots {
		if _, visited := index[id]; !visited {
			connect(id)
		}
	}

	out := []string{}
	for _, id := range c.lessonOrder {
		if cyclic[id] {
			out = append(out, id)
		}
	}
	return out
}

// GeneratePath returns the ancestors of target in dependency order, ending
// with target. Lessons with no ordering constraint between them keep their
// insertion order.
func (c *Curriculum) GeneratePath(target string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.lessons[target]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLesson, target)
	}

	ancestors := map[string]bool{target: true}
	pending := []string{target}
	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for _, p := range c.lessons[id].Prerequisites {
			if _, ok := c.lessons[p]; !ok {
				return nil, fmt.Errorf("%w: %s (required by %s)", ErrUnknownLesson, p, id)
			}
			if !ancestors[p] {
				ancestors[p] = true
				pending = append(pending, p)
			}
		}
	}

	// Kahn's algorithm; the ready queue is ordered by insertion position.
	indegree := make(map[string]int, len(ancestors))
	dependents := make(map[string][]string, len(ancestors))
	for id := range ancestors {
		for _, p := range uniqueStrings(c.lessons[id].Prerequisites) {
			indegree[id]++
			dependents[p] = append(dependents[p], id)
		}
	}

	ready := &positionQueue{position: c.position}
	for id := range ancestors {
		if indegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	path := make([]string, 0, len(ancestors))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		path = append(path, id)
		for _, d := range dependents[id] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(ready, d)
			}
		}
	}

	if len(path) != len(ancestors) {
		cycle := c.cyclicLessons([]string{target}, ancestors)
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, strings.Join(cycle, ", "))
	}
	return path, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// positionQueue is a min-heap of lesson ids keyed by insertion position.
type positionQueue struct {
	ids      []string
	position map[string]int
}

func (q *positionQueue) Len() int { return len(q.ids) }
func (q *positionQueue) Less(i, j int) bool {
	return q.position[q.ids[i]] < q.position[q.ids[j]]
}
func (q *positionQueue) Swap(i, j int) { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *positionQueue) Push(x any)    { q.ids = append(q.ids, x.(string)) }
func (q *positionQueue) Pop() any {
	last := q.ids[len(q.ids)-1]
	q.ids = q.ids[:len(q.ids)-1]
	return last
}
