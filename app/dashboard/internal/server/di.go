package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/data"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/service"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/session"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

// ProviderSet 是看板服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Data providers
	data.NewData,
	data.NewSearchRepo,
	data.NewJobRepo,
	data.NewIdentityRepo,
	data.NewPreferenceRepo,

	// UseCase providers
	usecase.NewReportUseCase,
	usecase.NewRequestUseCase,
	session.NewManager,

	// Service providers
	service.NewDashboardService,
)
