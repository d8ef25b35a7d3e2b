// Package notebook builds Jupyter notebooks for lessons.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultAuthor is used when New is given an empty author.
const DefaultAuthor = "Learning System"

// ErrInvalidQuiz is returned by Generate when a quiz has no options or its
// correct index does not point at one.
var ErrInvalidQuiz = errors.New("invalid quiz")

// maxOptions is the number of option letters available (A-Z).
const maxOptions = 26

var cellNamespace = uuid.MustParse("6f1d7c3e-2b8a-4c55-9e0f-5a1b2c3d4e5f")

const asciiArtExample = `# Example ASCII Art - Modify this!
print("""
    ~~~~ Fun Program ~~~~
    🎉 Learning is Fun! 🎉
""")`

// Generator accumulates cells for one notebook. Builder methods chain;
// the first content error is kept and returned by Generate.
type Generator struct {
	title       string
	description string
	author      string
	cells       []Cell
	now         func() time.Time
	err         error
}

// New creates a generator for a notebook.
func New(title, description, author string) *Generator {
	if author == "" {
		author = DefaultAuthor
	}
	return &Generator{
		title:       title,
		description: description,
		author:      author,
		now:         time.Now,
	}
}

// WithClock overrides the clock used for the "Created" line.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// Markdown appends a markdown cell.
func (g *Generator) Markdown(content string, tags ...string) *Generator {
	g.add(CellMarkdown, content, tags)
	return g
}

// Code appends an unexecuted Python code cell.
func (g *Generator) Code(code string, tags ...string) *Generator {
	g.add(CellCode, code, tags)
	return g
}

// Quiz appends the question and, when present, an explanation cell.
func (g *Generator) Quiz(q Quiz) *Generator {
	switch {
	case len(q.Options) == 0:
		g.fail(fmt.Errorf("%w: %q has no options", ErrInvalidQuiz, q.Question))
	case len(q.Options) > maxOptions:
		g.fail(fmt.Errorf("%w: %q has %d options, at most %d allowed", ErrInvalidQuiz, q.Question, len(q.Options), maxOptions))
	case q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options):
		g.fail(fmt.Errorf("%w: %q correct index %d out of range [0,%d)", ErrInvalidQuiz, q.Question, q.CorrectIndex, len(q.Options)))
	}

	var b strings.Builder
	b.WriteString("## 🎯 Quiz Question\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", q.Question)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "- %c) %s\n", rune('A'+i%maxOptions), opt)
	}
	g.add(CellMarkdown, b.String(), []string{"quiz"})

	if q.Explanation != "" {
		g.add(CellMarkdown, "**Answer Explanation:**\n"+q.Explanation, []string{"quiz-answer"})
	}
	return g
}

// Challenge appends the challenge prompt and a code cell to solve it in.
func (g *Generator) Challenge(c Challenge) *Generator {
	var b strings.Builder
	fmt.Fprintf(&b, "## 🚀 Challenge: %s\n\n%s\n", c.Title, c.Prompt)
	if len(c.Hints) > 0 {
		b.WriteString("\n**Hints:**\n")
		for i, h := range c.Hints {
			fmt.Fprintf(&b, "- Hint %d: %s\n", i+1, h)
		}
	}
	g.add(CellMarkdown, b.String(), []string{"challenge"})

	code := c.StarterCode
	if code == "" {
		code = "# Write your code here"
	}
	g.add(CellCode, code, []string{"challenge-code"})
	return g
}

// VisualExercise appends a visual exercise, plus example code for ASCII art.
func (g *Generator) VisualExercise(title, description string, kind VisualKind) *Generator {
	g.add(CellMarkdown, fmt.Sprintf("## 🎨 Visual Exercise: %s\n\n%s\n", title, description), []string{"visual-exercise"})
	if kind == VisualASCIIArt || kind == "" {
		g.add(CellCode, asciiArtExample, []string{"visual-code"})
	}
	return g
}

// FunFact appends a "Did You Know?" cell.
func (g *Generator) FunFact(fact string) *Generator {
	g.add(CellMarkdown, fmt.Sprintf("### 💡 Did You Know?\n\n%s\n", fact), []string{"fun-fact"})
	return g
}

// TitleAndIntro appends the heading, the author/date/topic block and the
// introduction.
func (g *Generator) TitleAndIntro(title, intro string) *Generator {
	g.add(CellMarkdown, "# "+title, nil)
	g.add(CellMarkdown, fmt.Sprintf("**Author:** %s  \n**Created:** %s  \n**Topic:** %s\n",
		g.author, g.now().Format("January 02, 2006"), g.title), nil)
	g.add(CellMarkdown, intro, nil)
	return g
}

// Generate returns the notebook document.
func (g *Generator) Generate() (*Notebook, error) {
	if g.err != nil {
		return nil, g.err
	}
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)

	nb := &Notebook{
		Cells: cells,
		Metadata: Metadata{
			KernelSpec:   KernelSpec{DisplayName: "Python 3", Language: "python", Name: "python3"},
			LanguageInfo: LanguageInfo{Name: "python", Version: "3.9.0"},
			Title:        g.title,
			Description:  g.description,
			Authors:      []Author{{Name: g.author}},
		},
		NBFormat:      FormatMajor,
		NBFormatMinor: FormatMinor,
	}
	return nb, nil
}

// JSON returns the notebook as indented JSON.
func (g *Generator) JSON() ([]byte, error) {
	nb, err := g.Generate()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(nb, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding notebook: %w", err)
	}
	return data, nil
}

// Len returns the number of cells added so far.
func (g *Generator) Len() int {
	return len(g.cells)
}

func (g *Generator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

func (g *Generator) add(kind CellType, source string, tags []string) {
	seed := g.title + "/" + strconv.Itoa(len(g.cells))
	cell := Cell{
		ID:       uuid.NewSHA1(cellNamespace, []byte(seed)).String(),
		CellType: kind,
		Metadata: CellMetadata{Tags: append([]string{}, tags...)},
		Source:   splitLines(source),
	}
	if kind == CellCode {
		cell.Outputs = []any{}
	}
	g.cells = append(g.cells, cell)
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
