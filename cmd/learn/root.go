package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		f flags
		a *app
	)

	root := &cobra.Command{
		Use:   "learn",
		Short: "Curriculum, notebook and progress tooling for kids' coding lessons",
		Long: `learn loads a curriculum of YAML modules and works with it.

Curriculum commands:
  validate   - Check prerequisites for dangling ids and cycles
  path       - Print the ordered learning path to a lesson
  lessons    - List lessons, optionally filtered
  export     - Export the curriculum as JSON or an Excel workbook
  notebook   - Generate a Jupyter notebook for a lesson
  badges     - List available badges

Learner commands live under "learn progress".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(f)
			if err != nil {
				return fmt.Errorf("initialising: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&f.curriculumPath, "curriculum", "c", "", "Curriculum directory (default: $LEARN_CURRICULUM_PATH)")
	root.PersistentFlags().StringVar(&f.store, "store", "", "Progress store: memory, postgres or redis (default: $LEARN_STORE)")
	root.PersistentFlags().StringVar(&f.stateFile, "state", "", "JSON file persisting the memory store between runs")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (default: $LEARN_LOG_LEVEL)")

	get := func() *app { return a }
	root.AddCommand(
		newValidateCmd(get),
		newPathCmd(get),
		newLessonsCmd(get),
		newExportCmd(get),
		newNotebookCmd(get),
		newBadgesCmd(get),
		newProgressCmd(get),
	)
	return root
}
