package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/data"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/logger"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/poller"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

// go build -ldflags "-X main.Version=x.y.z"
var Version string

// env 子命令共用的依赖
type env struct {
	bc       *conf.Bootstrap
	logger   log.Logger
	reports  poller.Aggregator
	requests *usecase.RequestUseCase
}

func newRootCmd() *cobra.Command {
	var (
		flagconf string
		e        = &env{}
	)

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Inspect and request sentiment reports from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			bc, err := conf.LoadFile(flagconf)
			if err != nil {
				return err
			}
			return e.init(bc)
		},
	}
	root.PersistentFlags().StringVar(&flagconf, "conf", "app/dashboard/configs/config.yaml", "config path, eg: --conf config.yaml")

	root.AddCommand(
		newReportsCmd(e),
		newWatchCmd(e),
		newGenerateCmd(e),
		newRegenerateCmd(e),
	)
	return root
}

// init 报告查询统一走看板的搜索代理，不直连集群
func (e *env) init(bc *conf.Bootstrap) error {
	var level, logFile string
	if bc.Log != nil {
		level, logFile = bc.Log.Level, bc.Log.File
	}
	lr, err := logger.New(level, logFile)
	if err != nil {
		return err
	}
	e.bc = bc
	e.logger = log.With(logger.NewKratos(lr), "caller", log.DefaultCaller, "service.name", "reportctl")

	var dashboardURL string
	if bc.Client != nil {
		dashboardURL = bc.Client.DashboardUrl
	}
	if dashboardURL == "" {
		return fmt.Errorf("client.dashboard_url is not configured")
	}

	searcher := data.NewProxyClient(dashboardURL, bc.Upstream.TimeoutDuration())
	jobs := data.NewJobRepo(bc.Upstream, e.logger)
	e.reports = usecase.NewReportUseCase(searcher, jobs, bc.Search, bc.Reports, e.logger)
	e.requests = usecase.NewRequestUseCase(jobs, e.logger)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
