package main

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/poller"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

func newReportsCmd(e *env) *cobra.Command {
	var (
		email string
		term  string
		page  int
	)
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List reports for an email, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			reports, err := e.reports.Aggregate(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("%s", errors.FromError(err).Message)
			}
			view := usecase.BuildView(reports, term, page)
			renderReports(cmd.OutOrStdout(), view.Reports)
			fmt.Fprintf(cmd.OutOrStdout(), "Page %d of %d (%d reports)\n", view.Page, view.TotalPages, view.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "report receiver email")
	cmd.Flags().StringVar(&term, "q", "", "filter by topic or keyword")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

// newWatchCmd 与页面相同的轮询逻辑：存在 processing 报告时按间隔刷新，全部结束后退出
func newWatchCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll reports until none are processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			return watch(cmd, e, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "report receiver email")
	return cmd
}

func watch(cmd *cobra.Command, e *env, email string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	updates := make(chan poller.Update, 1)
	ctrl := poller.New(e.reports, e.logger,
		poller.WithInterval(e.bc.Poll.IntervalDuration()),
		poller.OnUpdate(func(u poller.Update) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		}),
	)
	defer ctrl.Stop()

	ctrl.SetEmail(email)
	go ctrl.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			if u.Err != nil {
				fmt.Fprintf(out, "refresh failed: %s\n", errors.FromError(u.Err).Message)
			}
			renderReports(out, u.Reports)
			if u.State == poller.Idle {
				if u.Err != nil {
					return fmt.Errorf("%s", errors.FromError(u.Err).Message)
				}
				fmt.Fprintln(out, "No reports in progress.")
				return nil
			}
			fmt.Fprintf(out, "%d report(s) in progress, refreshing every %s\n",
				countProcessing(u.Reports), e.bc.Poll.IntervalDuration())
		}
	}
}

func countProcessing(reports []*domain.Report) int {
	n := 0
	for _, r := range reports {
		if r.IsProcessing() {
			n++
		}
	}
	return n
}
