package notebook

import (
	"fmt"
	"strings"
)

// FromLesson starts the standard notebook for a lesson: title, intro and
// the list of learning outcomes. Callers append exercises to the result.
func FromLesson(d Descriptor, author string) *Generator {
	g := New(d.Title, d.Topic, author)

	subject := d.Topic
	if subject == "" {
		subject = d.Title
	}
	g.TitleAndIntro(d.Title, fmt.Sprintf("Welcome! In this lesson you will explore **%s**.", subject))

	if len(d.Outcomes) > 0 {
		var b strings.Builder
		b.WriteString("## 📚 What You'll Learn\n\n")
		for _, o := range d.Outcomes {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		g.Markdown(b.String(), "outcomes")
	}

	g.Code("# Let's get started!\nprint(\"Ready to learn!\")")
	return g
}
