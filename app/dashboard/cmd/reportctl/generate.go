package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

func newGenerateCmd(e *env) *cobra.Command {
	var (
		topic    string
		keywords []string
		suggest  bool
		form     usecase.GenerateForm
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Request a new sentiment report",
		Example: `  reportctl generate --topic Jakarta --keywords banjir,macet --from 2025-01-01 --to 2025-01-31 --email me@example.com
  reportctl generate --topic Jakarta --suggest --from 2025-01-01 --to 2025-01-31 --email me@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			flow, err := e.requests.Restore(topic, keywords)
			if err != nil {
				return userError(err)
			}
			if suggest {
				suggested, err := flow.Analyze(ctx, topic)
				if err != nil {
					return userError(err)
				}
				fmt.Fprintf(out, "Suggested keywords: %s\n", strings.Join(suggested, ", "))
				for _, k := range keywords {
					// 与建议重复的关键词忽略
					_ = flow.AddKeyword(k)
				}
			}

			if _, err := flow.Generate(ctx, form, nil); err != nil {
				return userError(err)
			}
			printNotification(cmd, flow.Notification())
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "main topic to analyze")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "comma separated keywords")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "start from the keywords suggested for the topic")
	cmd.Flags().StringVar(&form.StartDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.EndDate, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.Email, "email", "", "report receiver email")
	return cmd
}

func newRegenerateCmd(e *env) *cobra.Command {
	var jobID, email string
	cmd := &cobra.Command{
		Use:   "regenerate",
		Short: "Retry a failed report job",
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := e.requests.NewFlow()
			refresh := usecase.RefresherFunc(func(ctx context.Context) {
				reports, err := e.reports.Aggregate(ctx, email)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %s\n", errors.FromError(err).Message)
					return
				}
				renderReports(cmd.OutOrStdout(), reports)
			})
			if _, err := flow.Regenerate(cmd.Context(), jobID, email, refresh); err != nil {
				return userError(err)
			}
			printNotification(cmd, flow.Notification())
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "failed job id")
	cmd.Flags().StringVar(&email, "email", "", "report receiver email")
	return cmd
}

// userError 去掉 kratos 错误的 reason/code 前缀，只保留提示文案
func userError(err error) error {
	e := errors.FromError(err)
	if field := domain.ErrorField(err); field != "" {
		return fmt.Errorf("%s: %s", field, e.Message)
	}
	return fmt.Errorf("%s", e.Message)
}

func printNotification(cmd *cobra.Command, n *domain.Notification) {
	if n == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", n.Title, n.Message)
}
