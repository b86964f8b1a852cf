package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/export"
	"github.com/sadopc/goaltrack/internal/store"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show average unit time per task",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			user, err := e.requireUser()
			if err != nil {
				return err
			}

			stats, err := e.estimator.Stats(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Task", "Runs", "Done", "Avg / unit"})
			for _, s := range stats {
				tw.AppendRow(table.Row{
					s.TaskName,
					s.Records,
					fmt.Sprintf("%d/%d %s", s.TotalCompleted, s.TotalTarget, s.UnitLabel),
					formatSeconds(int64(math.Round(s.AverageSeconds))),
				})
			}
			tw.Render()
			return nil
		},
	}
}

func recordsCmd() *cobra.Command {
	var (
		task  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			user, err := e.requireUser()
			if err != nil {
				return err
			}

			recs, err := e.store.ListRecordsWithSnapshots(cmd.Context(), store.RecordFilter{
				UserID:   user.ID,
				TaskName: strings.TrimSpace(task),
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Task", "Started", "Done", "Budget", "Avg / unit"})
			for _, r := range recs {
				tw.AppendRow(table.Row{
					r.ID[:8],
					r.TaskName,
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					fmt.Sprintf("%d/%d %s", r.CompletedCount, r.TotalUnits, r.UnitLabel),
					formatSeconds(r.TotalBudgetSeconds),
					formatSeconds(int64(math.Round(r.AverageUnitSeconds()))),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "only show runs of this task")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")
	return cmd
}

func suggestCmd() *cobra.Command {
	var (
		task   string
		units  int
		bias   int
		sample int
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a time budget for a task from past runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			user, err := e.requireUser()
			if err != nil {
				return err
			}

			prefs, err := estimator.LoadPrefs(cmd.Context(), e.store, user.ID, task)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bias") {
				prefs.SpeedBiasPercent = bias
			}
			if cmd.Flags().Changed("sample") {
				prefs.SampleSize = sample
			}
			if save {
				if err := estimator.SavePrefs(cmd.Context(), e.store, user.ID, task, prefs); err != nil {
					return err
				}
			}

			s, err := e.estimator.Estimate(cmd.Context(), user.ID, task, prefs.Options())
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Printf("No completed units for %q yet.\n", task)
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendRow(table.Row{"Task", s.TaskName})
			tw.AppendRow(table.Row{"Runs used", s.RecordsUsed})
			tw.AppendRow(table.Row{"History avg / unit", formatSeconds(int64(math.Round(s.Baseline)))})
			tw.AppendRow(table.Row{"Speed bias", fmt.Sprintf("%+d%%", s.SpeedBiasPercent)})
			tw.AppendRow(table.Row{"Suggested / unit", formatSeconds(s.PerUnitSeconds)})
			if units > 0 {
				tw.AppendRow(table.Row{fmt.Sprintf("Budget for %d", units), formatSeconds(s.TotalSeconds(units))})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&task, "task", "", "task name")
	cmd.Flags().IntVar(&units, "units", 0, "planned unit count")
	cmd.Flags().IntVar(&bias, "bias", 0, "speed bias percent, negative is faster")
	cmd.Flags().IntVar(&sample, "sample", 0, "average the last N runs (0 for all)")
	cmd.Flags().BoolVar(&save, "save", false, "store --bias and --sample for this task")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		format string
		out    string
		task   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export runs and their units to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			user, err := e.requireUser()
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("goaltrack-export-%s.%s", time.Now().Format("2006-01-02"), format)
			}
			records, err := export.Collect(cmd.Context(), e.store, store.RecordFilter{
				UserID:   user.ID,
				TaskName: strings.TrimSpace(task),
			})
			if err != nil {
				return err
			}
			if err := export.Write(format, records, out); err != nil {
				return err
			}
			fmt.Printf("Exported %d runs to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "output format ("+strings.Join(export.Formats, ", ")+")")
	cmd.Flags().StringVar(&out, "out", "", "output path")
	cmd.Flags().StringVar(&task, "task", "", "only export runs of this task")
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			var creds domain.Credentials
			if err := credentialsForm(&creds, false).Run(); err != nil {
				return err
			}
			u, err := e.identity.SignIn(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s\n", u.Email)
			return nil
		},
	}
}

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			var creds domain.Credentials
			if err := credentialsForm(&creds, true).Run(); err != nil {
				return err
			}
			u, err := e.identity.SignUp(cmd.Context(), creds)
			if err != nil {
				return err
			}
			fmt.Printf("Created account %s\n", u.Email)
			return nil
		},
	}
}

func credentialsForm(c *domain.Credentials, withUsername bool) *huh.Form {
	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}
	fields := []huh.Field{
		huh.NewInput().Title("Email").Value(&c.Email).Validate(required),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&c.Password).Validate(required),
	}
	if withUsername {
		fields = append(fields, huh.NewInput().Title("Username").Description("Optional").Value(&c.Username))
	}
	return huh.NewForm(huh.NewGroup(fields...))
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.identity.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes that failed to reach the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			p, err := e.openOutbox()
			if err != nil {
				return err
			}
			before := p.Size()
			if err := p.Drain(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Replayed %d of %d pending writes\n", before-p.Size(), before)
			return nil
		},
	}
}

func formatSeconds(secs int64) string {
	if secs <= 0 {
		return "0s"
	}
	return (time.Duration(secs) * time.Second).String()
}
