package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mamaboss/internal/auth"
	"mamaboss/internal/cli"
	"mamaboss/internal/core"
	"mamaboss/internal/services"
)

const dateFormat = "2006-01-02"

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Inspect registered accounts"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				users, err := a.auth.Users(ctx)
				if err != nil {
					return err
				}
				return a.print(usersResult(users))
			})
		},
	})
	return cmd
}

func usersResult(users []core.User) result {
	r := result{data: users, header: []string{"ID", "NAME", "EMAIL", "CREATED"}}
	for _, u := range users {
		r.rows = append(r.rows, []string{u.ID, u.Name, u.Email, u.CreatedAt.Format(dateFormat)})
	}
	return r
}

// subscriptionRow pairs an account with its subscription, if any.
type subscriptionRow struct {
	UserID       string             `json:"userId"`
	Email        string             `json:"email"`
	Plan         string             `json:"plan"`
	Subscription *core.Subscription `json:"subscription"`
}

func subscriptionsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{Use: "subscriptions", Short: "Inspect subscriptions"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List the subscription of every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := core.SubscriptionStatus(status)
			return withApp(cmd, func(ctx context.Context, a *app) error {
				users, err := a.auth.Users(ctx)
				if err != nil {
					return err
				}
				rows := make([]subscriptionRow, 0, len(users))
				for _, u := range users {
					sub, err := a.modules.Subscriptions.Subscription(ctx, u.ID)
					if err != nil {
						return fmt.Errorf("user %s: %w", u.ID, err)
					}
					if filter != "" && (sub == nil || sub.Status != filter) {
						continue
					}
					plan, err := a.modules.Subscriptions.CurrentPlan(ctx, u.ID)
					if err != nil {
						return fmt.Errorf("user %s: %w", u.ID, err)
					}
					rows = append(rows, subscriptionRow{UserID: u.ID, Email: u.Email, Plan: plan.ID, Subscription: sub})
				}
				return a.print(subscriptionsResult(rows))
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "Only show subscriptions in this status (active|pending|cancelled|expired)")
	cmd.AddCommand(list)
	return cmd
}

func subscriptionsResult(rows []subscriptionRow) result {
	r := result{data: rows, header: []string{"USER", "EMAIL", "PLAN", "STATUS", "ENDS", "AUTO-RENEW"}}
	for _, row := range rows {
		status, ends, renew := "-", "-", "-"
		if s := row.Subscription; s != nil {
			status = string(s.Status)
			ends = s.EndDate.Format(dateFormat)
			renew = strconv.FormatBool(s.AutoRenew)
		}
		r.rows = append(r.rows, []string{row.UserID, row.Email, row.Plan, status, ends, renew})
	}
	return r
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				return a.print(plansResult(a.modules.Subscriptions.Catalog().Plans))
			})
		},
	}
}

func plansResult(plans []core.Plan) result {
	r := result{data: plans, header: []string{"ID", "NAME", "PRICE", "INTERVAL", "PREMIUM", "MAX TASKS", "MAX GOALS"}}
	for _, p := range plans {
		r.rows = append(r.rows, []string{
			p.ID, p.Name, p.Currency + " " + p.Price.String(), string(p.Interval),
			strconv.FormatBool(p.Premium), limit(p.Limits.MaxTasks), limit(p.Limits.MaxGoals),
		})
	}
	return r
}

func limit(n int) string {
	if n <= 0 {
		return "unlimited"
	}
	return strconv.Itoa(n)
}

func renewCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{Use: "renew", Short: "Subscription renewals"}
	run := &cobra.Command{
		Use:   "run",
		Short: "Renew or expire every subscription that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				now := time.Now().In(a.cfg.Location())
				if at != "" {
					t, err := time.ParseInLocation(dateFormat, at, a.cfg.Location())
					if err != nil {
						return fmt.Errorf("invalid --at %q: %w", at, err)
					}
					now = t
				}
				report, err := a.modules.Renewals.ProcessDue(ctx, now)
				if err != nil {
					return err
				}
				return a.print(renewResult(report))
			})
		},
	}
	run.Flags().StringVar(&at, "at", "", "Process as of this date (YYYY-MM-DD) instead of now")
	cmd.AddCommand(run)
	return cmd
}

func renewResult(report services.RenewalReport) result {
	return result{
		data:   report,
		header: []string{"CHECKED", "RENEWED", "PENDING", "EXPIRED", "FAILED", "ACTIVE"},
		rows: [][]string{{
			strconv.Itoa(report.Checked), strconv.Itoa(report.Renewed), strconv.Itoa(report.Pending),
			strconv.Itoa(report.Expired), strconv.Itoa(report.Failed), strconv.Itoa(report.Active),
		}},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "seed", Short: "Seed fixture data"}
	cmd.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Create the demo account unless it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.SeedDemo(ctx); err != nil {
					return err
				}
				return a.print(result{
					data:   map[string]string{"email": auth.DemoEmail, "password": auth.DemoPassword},
					header: []string{"EMAIL", "PASSWORD"},
					rows:   [][]string{{auth.DemoEmail, auth.DemoPassword}},
				})
			})
		},
	})
	return cmd
}

// exportRow is the outcome of exporting one finance record.
type exportRow struct {
	FinanceID string `json:"financeId"`
	Ref       string `json:"ref,omitempty"`
	Error     string `json:"error,omitempty"`
}

func financesCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{Use: "finances", Short: "Finance records"}
	export := &cobra.Command{
		Use:   "export <user-id>",
		Short: "Append a user's finance records to the spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					finances []core.Finance
					err      error
				)
				if month != "" {
					year, m, perr := parseMonth(month)
					if perr != nil {
						return perr
					}
					finances, err = a.modules.Finances.ByMonth(ctx, userID, year, m)
				} else {
					finances, err = a.modules.Finances.List(ctx, userID)
				}
				if err != nil {
					return err
				}

				writer, err := cli.NewFinanceWriter(ctx, a.cfg, a.logger)
				if err != nil {
					return err
				}
				exporter := services.NewFinanceExporter(a.deps, writer)

				rows := make([]exportRow, 0, len(finances))
				var failed int
				for _, f := range finances {
					ref, err := exporter.Export(ctx, userID, f.ID)
					row := exportRow{FinanceID: f.ID, Ref: ref}
					if err != nil {
						row.Error = err.Error()
						failed++
					}
					rows = append(rows, row)
				}
				if err := a.print(exportResult(rows)); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d records failed to export", failed, len(rows))
				}
				return nil
			})
		},
	}
	export.Flags().StringVar(&month, "month", "", "Only export this month (YYYY-MM)")
	cmd.AddCommand(export)
	return cmd
}

func exportResult(rows []exportRow) result {
	r := result{data: rows, header: []string{"FINANCE", "SHEET REF", "ERROR"}}
	for _, row := range rows {
		r.rows = append(r.rows, []string{row.FinanceID, row.Ref, row.Error})
	}
	return r
}

func parseMonth(s string) (int, int, error) {
	y, m, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, errors.New("month must be YYYY-MM")
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", y)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", m)
	}
	return year, month, nil
}
