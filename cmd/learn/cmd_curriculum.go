package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
	"github.com/p-n-ai/pai-notebooks/internal/notebook"
	"github.com/p-n-ai/pai-notebooks/internal/report"
)

func newValidateCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the prerequisite graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get().curriculum()
			ov := c.Overview()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d modules, %d lessons\n", ov.Name, ov.TotalModules, ov.TotalLessons)

			rep := c.Validate()
			if rep.OK() {
				fmt.Fprintln(out, "✅ curriculum is valid")
				return nil
			}
			if len(rep.Dangling) > 0 {
				fmt.Fprintf(out, "❌ dangling prerequisites: %s\n", strings.Join(rep.Dangling, ", "))
			}
			if len(rep.Cyclic) > 0 {
				fmt.Fprintf(out, "❌ lessons on a cycle: %s\n", strings.Join(rep.Cyclic, ", "))
			}
			return rep.Err()
		},
	}
}

func newPathCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path <lesson-id>",
		Short: "Print the learning path that ends at a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get().curriculum()
			path, err := c.GeneratePath(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, id := range path {
				l, _ := c.Lesson(id)
				fmt.Fprintf(out, "%d. %s - %s\n", i+1, id, l.Title)
			}
			return nil
		},
	}
}

func newLessonsCmd(get func() *app) *cobra.Command {
	var difficulty, topic, dependentsOf string

	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := get().curriculum()
			var lessons []curriculum.Lesson
			switch {
			case difficulty != "":
				d, err := curriculum.ParseDifficulty(difficulty)
				if err != nil {
					return err
				}
				lessons = c.LessonsByDifficulty(d)
			case topic != "":
				lessons = c.LessonsByTopic(topic)
			case dependentsOf != "":
				if !c.HasLesson(dependentsOf) {
					return fmt.Errorf("%w: %s", curriculum.ErrUnknownLesson, dependentsOf)
				}
				lessons = c.Dependents(dependentsOf)
			default:
				lessons = c.Lessons()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDIFFICULTY\tMINUTES\tTITLE")
			for _, l := range lessons {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", l.ID, l.Difficulty, l.EstimatedMinutes, l.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Only lessons of this difficulty")
	cmd.Flags().StringVar(&topic, "topic", "", "Only lessons with this topic")
	cmd.Flags().StringVar(&dependentsOf, "dependents-of", "", "Only lessons that directly require this lesson")
	cmd.MarkFlagsMutuallyExclusive("difficulty", "topic", "dependents-of")
	return cmd
}

func newExportCmd(get func() *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the curriculum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := get().curriculum().Export()
			switch format {
			case "json":
				if out == "" {
					return printJSON(cmd, snap)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				cmd.SetOut(f)
				return printJSON(cmd, snap)
			case "xlsx":
				if out == "" {
					return fmt.Errorf("--out is required for xlsx export")
				}
				wb, err := report.CurriculumWorkbook(snap)
				if err != nil {
					return err
				}
				defer wb.Close()
				if err := wb.SaveAs(out); err != nil {
					return fmt.Errorf("saving %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want json or xlsx)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (json defaults to stdout)")
	return cmd
}

func newNotebookCmd(get func() *app) *cobra.Command {
	var outDir, author string

	cmd := &cobra.Command{
		Use:   "notebook <lesson-id>",
		Short: "Generate a Jupyter notebook for a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			c := a.curriculum()
			l, ok := c.Lesson(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", curriculum.ErrUnknownLesson, args[0])
			}
			if author == "" {
				author = a.cfg.Notebook.Author
			}
			if outDir == "" {
				outDir = a.cfg.Notebook.OutputDir
			}

			g := lessonNotebook(c, l, author)
			data, err := g.JSON()
			if err != nil {
				return err
			}
			if err := notebook.Validate(data); err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			path := filepath.Join(outDir, notebook.Slug(l.Title)+".ipynb")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing notebook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Output directory (default: $LEARN_OUTPUT_DIR)")
	cmd.Flags().StringVar(&author, "author", "", "Notebook author (default: $LEARN_NOTEBOOK_AUTHOR)")
	return cmd
}

// lessonNotebook builds the standard notebook for a lesson, with a pointer
// to the lessons it unlocks.
func lessonNotebook(c *curriculum.Curriculum, l curriculum.Lesson, author string) *notebook.Generator {
	g := notebook.FromLesson(notebook.Descriptor{
		Title:    l.Title,
		Topic:    l.Topic,
		Outcomes: l.LearningOutcomes,
	}, author)

	if l.Description != "" {
		g.Markdown(l.Description)
	}
	g.Challenge(notebook.Challenge{
		Title:  "Try It Yourself",
		Prompt: fmt.Sprintf("Use what you learned about %s to write a small program of your own.", l.Title),
		Hints:  l.LearningOutcomes,
	})

	if next := c.Dependents(l.ID); len(next) > 0 {
		var b strings.Builder
		b.WriteString("## ➡️ Up Next\n\n")
		for _, n := range next {
			fmt.Fprintf(&b, "- %s\n", n.Title)
		}
		g.Markdown(b.String(), "up-next")
	}
	return g
}

func newBadgesCmd(get func() *app) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "badges",
		Short: "List available badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := get().badges
			badges := cat.All()
			if category != "" {
				badges = cat.ByCategory(badge.Category(category))
			}
			for _, b := range badges {
				fmt.Fprintln(cmd.OutOrStdout(), badge.Display(b))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only badges in this category")
	return cmd
}
