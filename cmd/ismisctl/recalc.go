package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/app"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
)

func newRecalcCmd(e *env) *cobra.Command {
	var (
		studentID string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Re-derive every final grade of a student",
		Long: `Recompute the final grade of each enrolled subject from its components and
save the document. Repairs finals written by older clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer stores.Close() //nolint:errcheck
			cache := app.OpenCache(e.cfg, nil, e.log)
			defer cache.Close() //nolint:errcheck

			grades := service.NewGradeService(stores.Students, cache.Service, nil, e.log)
			result, err := grades.Recalculate(ctx, strings.TrimSpace(studentID), dryRun)
			if err != nil {
				return err
			}
			verb := "updated"
			if dryRun {
				verb = "would update"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d subjects checked, %s %d finals, %d advisories\n",
				result.StudentID, result.Subjects, verb, result.Changed, len(result.Advisories))
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without saving")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}
