package notebook

import "encoding/json"

// CellType is the nbformat cell kind.
type CellType string

const (
	CellMarkdown CellType = "markdown"
	CellCode     CellType = "code"
)

// nbformat version written by Generate.
const (
	FormatMajor = 4
	FormatMinor = 5
)

// Cell is a single notebook cell. Source lines keep their trailing newline
// except for the last one.
type Cell struct {
	ID             string       `json:"id"`
	CellType       CellType     `json:"cell_type"`
	Metadata       CellMetadata `json:"metadata"`
	Source         []string     `json:"source"`
	ExecutionCount *int         `json:"execution_count"`
	Outputs        []any        `json:"outputs"`
}

// CellMetadata carries the cell tags.
type CellMetadata struct {
	Tags []string `json:"tags"`
}

// Text joins the source lines back into one string.
func (c Cell) Text() string {
	var n int
	for _, l := range c.Source {
		n += len(l)
	}
	buf := make([]byte, 0, n)
	for _, l := range c.Source {
		buf = append(buf, l...)
	}
	return string(buf)
}

// HasTag reports whether the cell carries tag.
func (c Cell) HasTag(tag string) bool {
	for _, t := range c.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type cellJSON struct {
	ID       string       `json:"id"`
	CellType CellType     `json:"cell_type"`
	Metadata CellMetadata `json:"metadata"`
	Source   []string     `json:"source"`
}

// MarshalJSON writes execution_count and outputs only for code cells, as
// nbformat requires.
func (c Cell) MarshalJSON() ([]byte, error) {
	base := cellJSON{ID: c.ID, CellType: c.CellType, Metadata: c.Metadata, Source: c.Source}
	if base.Source == nil {
		base.Source = []string{}
	}
	if base.Metadata.Tags == nil {
		base.Metadata.Tags = []string{}
	}
	if c.CellType != CellCode {
		return json.Marshal(base)
	}
	outputs := c.Outputs
	if outputs == nil {
		outputs = []any{}
	}
	return json.Marshal(struct {
		cellJSON
		ExecutionCount *int  `json:"execution_count"`
		Outputs        []any `json:"outputs"`
	}{base, c.ExecutionCount, outputs})
}

// Notebook is an nbformat 4 document.
type Notebook struct {
	Cells         []Cell   `json:"cells"`
	Metadata      Metadata `json:"metadata"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
}

// Metadata is the notebook-level metadata block.
type Metadata struct {
	KernelSpec   KernelSpec   `json:"kernelspec"`
	LanguageInfo LanguageInfo `json:"language_info"`
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Authors      []Author     `json:"authors,omitempty"`
}

type KernelSpec struct {
	DisplayName string `json:"display_name"`
	Language    string `json:"language"`
	Name        string `json:"name"`
}

type LanguageInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Author struct {
	Name string `json:"name"`
}

// Quiz is a multiple-choice question. CorrectIndex indexes Options.
type Quiz struct {
	Question     string
	Options      []string
	CorrectIndex int
	Explanation  string
}

// Challenge is a coding exercise with optional starter code and hints.
type Challenge struct {
	Title       string
	Prompt      string
	StarterCode string
	Hints       []string
}

// VisualKind selects the example code attached to a visual exercise.
type VisualKind string

const (
	VisualASCIIArt VisualKind = "ascii_art"
	VisualNone     VisualKind = "none"
)

// Descriptor is the lesson information a notebook is built from.
type Descriptor struct {
	Title    string
	Topic    string
	Outcomes []string
}
