package main

import (
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/logger"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "dashboard"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	// 初始化命令行参数，默认指向 dashboard 项目的配置文件
	flag.StringVar(&flagconf, "conf", "app/dashboard/configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置加载器，配置文件中的 ${VAR:default} 由 DASHBOARD_ 前缀的环境变量填充
	c := config.New(
		config.WithSource(
			env.NewSource(conf.EnvPrefix),
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	// 扫描配置到 Bootstrap 结构体
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化日志记录器：logrus 输出到控制台和日志文件，再包装为 kratos Logger 并附带调用者、服务ID等上下文
	var level, logFile string
	if bc.Log != nil {
		level, logFile = bc.Log.Level, bc.Log.File
	}
	lr, err := logger.New(level, logFile)
	if err != nil {
		panic(err)
	}
	kl := log.With(logger.NewKratos(lr),
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	// 通过 wire 组装依赖并创建应用
	app, cleanup, err := initApp(bc.Server, bc.Data, bc.Auth, bc.Search, bc.Upstream, bc.Reports, bc.Poll, kl)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}
