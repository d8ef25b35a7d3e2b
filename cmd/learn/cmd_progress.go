package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-notebooks/internal/progress"
	"github.com/p-n-ai/pai-notebooks/internal/report"
)

func newProgressCmd(get func() *app) *cobra.Command {
	var learner string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Record and inspect learner progress",
		Long: `Record and inspect learner progress.

The store is chosen by --store / $LEARN_STORE. With the memory store, pass
--state to keep progress between runs.`,
	}
	cmd.PersistentFlags().StringVarP(&learner, "learner", "l", "", "Learner id")

	// run opens the engine for one command and closes the store afterwards.
	run := func(fn func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			if learner == "" && cmd.Name() != "learners" {
				return fmt.Errorf("--learner is required")
			}
			a := get()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			e, err := a.openEngine(ctx)
			if err != nil {
				return errors.Join(err, a.Close())
			}
			defer func() { err = errors.Join(err, a.Close()) }()
			return fn(ctx, cmd, e, args)
		}
	}

	printRecord := func(cmd *cobra.Command, rec progress.LessonRecord) error {
		return printJSON(cmd, rec)
	}

	start := &cobra.Command{
		Use:   "start <lesson-id>",
		Short: "Start a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			rec, err := e.StartLesson(ctx, learner, args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		}),
	}

	var percentage, quiz int
	complete := &cobra.Command{
		Use:   "complete <lesson-id>",
		Short: "Complete a started lesson",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			var score *int
			if cmd.Flags().Changed("quiz") {
				score = &quiz
			}
			rec, err := e.CompleteLesson(ctx, learner, args[0], percentage, score)
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		}),
	}
	complete.Flags().IntVar(&percentage, "percentage", 100, "Completion percentage (0-100)")
	complete.Flags().IntVar(&quiz, "quiz", 0, "Quiz score (0-100)")

	logTime := &cobra.Command{
		Use:   "time <lesson-id> <minutes>",
		Short: "Log minutes spent on a lesson",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[1], err)
			}
			rec, err := e.LogTime(ctx, learner, args[0], minutes)
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		}),
	}

	challenge := &cobra.Command{
		Use:   "challenge <lesson-id> <challenge-id>",
		Short: "Record a completed code challenge",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			rec, err := e.CompleteChallenge(ctx, learner, args[0], args[1])
			if err != nil {
				return err
			}
			return printRecord(cmd, rec)
		}),
	}

	var reason string
	points := &cobra.Command{
		Use:   "points <amount>",
		Short: "Add points to a learner",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			amount, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			total, err := e.AddPoints(ctx, learner, amount, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total points: %d\n", total)
			return nil
		}),
	}
	points.Flags().StringVar(&reason, "reason", "", "Why the points were given")

	award := &cobra.Command{
		Use:   "award <badge-id>",
		Short: "Award a badge",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			awarded, err := e.AwardBadge(ctx, learner, args[0])
			if err != nil {
				return err
			}
			if !awarded {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already has %s\n", learner, args[0])
				return nil
			}
			b, _ := get().badges.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "🏆 awarded %s\n", b.Name)
			return nil
		}),
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print a learner's full progress as JSON",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			p, err := e.ExportProgress(ctx, learner)
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		}),
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print a learner's progress summary",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			s, err := e.Summary(ctx, learner)
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		}),
	}

	available := &cobra.Command{
		Use:   "available",
		Short: "List lessons whose prerequisites are complete",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			lessons, err := e.AvailableLessons(ctx, learner)
			if err != nil {
				return err
			}
			for _, l := range lessons {
				fmt.Fprintf(cmd.OutOrStdout(), "%s - %s\n", l.ID, l.Title)
			}
			return nil
		}),
	}

	var out string
	workbook := &cobra.Command{
		Use:   "report",
		Short: "Write a learner's progress to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			p, err := e.ExportProgress(ctx, learner)
			if err != nil {
				return err
			}
			s, err := e.Summary(ctx, learner)
			if err != nil {
				return err
			}
			a := get()
			wb, err := report.ProgressWorkbook(p, s, report.Lookup{Lessons: a.curriculum(), Badges: a.badges})
			if err != nil {
				return err
			}
			defer wb.Close()
			path := out
			if path == "" {
				path = learner + "-progress.xlsx"
			}
			if err := wb.SaveAs(path); err != nil {
				return fmt.Errorf("saving %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	}
	workbook.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <learner>-progress.xlsx)")

	learners := &cobra.Command{
		Use:   "learners",
		Short: "List learners with saved progress",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, cmd *cobra.Command, e *progress.Engine, args []string) error {
			ids, err := e.Learners(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}),
	}

	cmd.AddCommand(start, complete, logTime, challenge, points, award, show, summary, available, workbook, learners)
	return cmd
}
