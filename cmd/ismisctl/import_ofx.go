package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/app"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/billing"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/statement"
	appErrors "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/errors"
)

type paymentRecorder interface {
	Record(ctx context.Context, studentID string, req service.RecordPaymentRequest) (*service.PaymentResult, error)
}

// importReport tallies what happened to each credit.
type importReport struct {
	Applied   int
	Duplicate int
	Unmatched int
	Failed    int
}

// reference identifies a credit on the ledger. FITIDs are only unique per account.
func reference(c statement.Credit) string {
	if c.Account == "" {
		return c.FITID
	}
	return c.Account + "/" + c.FITID
}

func newImportOFXCmd(e *env) *cobra.Command {
	var (
		dryRun  bool
		pattern string
	)
	cmd := &cobra.Command{
		Use:   "import-ofx FILE...",
		Short: "Apply tuition credits from OFX/QFX bank statements",
		Long: `Apply credits from bank statement exports to student ledgers.

Each credit whose memo or payee name carries a student id is recorded as a bank
payment referenced by its account and FITID, so re-importing the same statement
skips what was already applied. A statement that cannot be read fails the run.

Examples:
  ismisctl import-ofx ~/Downloads/ncb_march.qfx
  ismisctl import-ofx --dry-run statements/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser, err := statement.NewParser(pattern)
			if err != nil {
				return err
			}
			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			credits, unreadable := readCredits(parser, files, e.log)
			e.log.Info("statements parsed", zap.Int("files", len(files)), zap.Int("unreadable", unreadable), zap.Int("credits", len(credits)))

			out := cmd.OutOrStdout()
			if dryRun {
				printCredits(out, credits)
				return unreadableError(unreadable)
			}

			ctx := cmd.Context()
			stores, err := app.OpenStores(ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer stores.Close() //nolint:errcheck
			cache := app.OpenCache(e.cfg, nil, e.log)
			defer cache.Close() //nolint:errcheck

			payments := service.NewPaymentService(stores.Students, billing.Ledger{MaxPayment: e.cfg.Payments.MaxAmount},
				nil, e.cfg.Payments.Currency, cache.Service, nil, e.log)

			bar := progressbar.NewOptions(len(credits),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Applying credits"),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
			)
			report := applyCredits(ctx, payments, credits, e.log, func() { _ = bar.Add(1) })
			_ = bar.Finish()

			fmt.Fprintf(out, "applied %d, already recorded %d, unmatched %d, failed %d, unreadable statements %d\n",
				report.Applied, report.Duplicate, report.Unmatched, report.Failed, unreadable)
			if report.Failed > 0 {
				return fmt.Errorf("%d credits could not be applied", report.Failed)
			}
			return unreadableError(unreadable)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "list matched credits without writing")
	cmd.Flags().StringVar(&pattern, "student-pattern", "", "regexp whose first group is the student id")
	return cmd
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("no statement at %s", p)
			}
			matches = []string{p}
		}
		files = append(files, matches...)
	}
	return files, nil
}

func unreadableError(n int) error {
	if n > 0 {
		return fmt.Errorf("%d statements could not be read", n)
	}
	return nil
}

// readCredits parses every file, dropping credits already seen in an earlier
// file. Files that cannot be opened or parsed are logged and counted.
func readCredits(parser *statement.Parser, files []string, log *zap.Logger) ([]statement.Credit, int) {
	seen := make(map[string]struct{})
	var credits []statement.Credit
	unreadable := 0
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			unreadable++
			log.Error("open statement failed", zap.String("file", path), zap.Error(err))
			continue
		}
		parsed, err := parser.Credits(f)
		_ = f.Close()
		if err != nil {
			unreadable++
			log.Error("parse statement failed", zap.String("file", path), zap.Error(err))
			continue
		}
		for _, c := range parsed {
			key := reference(c)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			credits = append(credits, c)
		}
	}
	return credits, unreadable
}

func applyCredits(ctx context.Context, payments paymentRecorder, credits []statement.Credit, log *zap.Logger, step func()) importReport {
	var report importReport
	for _, c := range credits {
		if ctx.Err() != nil {
			break
		}
		step()
		if c.StudentID == "" {
			report.Unmatched++
			log.Debug("credit names no student", zap.String("fitid", c.FITID), zap.String("name", c.Name))
			continue
		}
		req := service.RecordPaymentRequest{Amount: c.Amount, Method: models.PaymentMethodBank, Reference: reference(c)}
		_, err := payments.Record(ctx, c.StudentID, req)
		if errors.Is(err, appErrors.ErrConflict) {
			// Lost a version race against another writer.
			_, err = payments.Record(ctx, c.StudentID, req)
		}
		switch {
		case err == nil:
			report.Applied++
		case errors.Is(err, appErrors.ErrDuplicatePayment):
			report.Duplicate++
		case errors.Is(err, appErrors.ErrNotFound):
			report.Unmatched++
			log.Warn("credit names unknown student", zap.String("reference", req.Reference), zap.String("student_id", c.StudentID))
		default:
			report.Failed++
			log.Error("credit not applied", zap.String("reference", req.Reference), zap.String("student_id", c.StudentID), zap.Error(err))
		}
	}
	return report
}

func printCredits(w io.Writer, credits []statement.Credit) {
	for _, c := range credits {
		student := c.StudentID
		if student == "" {
			student = "-"
		}
		fmt.Fprintf(w, "%s  %-20s %12.2f  %-16s %s\n", c.Posted.Format("2006-01-02"), c.FITID, c.Amount, student, c.Memo)
	}
}
