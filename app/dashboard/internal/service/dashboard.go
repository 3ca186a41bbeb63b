package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/poller"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/session"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/usecase"
)

// ProxyFailureTitle 搜索代理失败时 error 字段的固定文案
const ProxyFailureTitle = "Failed to fetch from Elasticsearch"

// DashboardService 看板接口
type DashboardService struct {
	searcher repo.ReportSearcher
	reports  *usecase.ReportUseCase
	requests *usecase.RequestUseCase
	sessions *session.Manager
	allowed  map[string]struct{}
	poll     *conf.Poll
	logger   log.Logger
	log      *log.Helper
}

func NewDashboardService(
	searcher repo.ReportSearcher,
	reports *usecase.ReportUseCase,
	requests *usecase.RequestUseCase,
	sessions *session.Manager,
	s *conf.Search,
	p *conf.Poll,
	logger log.Logger,
) *DashboardService {
	allowed := map[string]struct{}{}
	if s != nil {
		for _, idx := range s.AllowedIndices {
			allowed[idx] = struct{}{}
		}
	}
	return &DashboardService{
		searcher: searcher,
		reports:  reports,
		requests: requests,
		sessions: sessions,
		allowed:  allowed,
		poll:     p,
		logger:   logger,
		log:      log.NewHelper(logger),
	}
}

// Sessions 页面层共用的会话管理
func (s *DashboardService) Sessions() *session.Manager {
	return s.sessions
}

// IndexAllowed 未配置白名单时放行所有索引
func (s *DashboardService) IndexAllowed(index string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[index]
	return ok
}

// Search 搜索代理的查询部分，返回只含 _source 的命中列表
func (s *DashboardService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.HitList, *domain.ProxyFailure, int) {
	if strings.TrimSpace(req.Index) == "" {
		return nil, &domain.ProxyFailure{Error: "Invalid request", Message: "index is required"}, 400
	}
	if !s.IndexAllowed(req.Index) {
		return nil, &domain.ProxyFailure{
			Error:   "Invalid request",
			Message: fmt.Sprintf("index %q is not allowed", req.Index),
		}, 400
	}

	hits, err := s.searcher.Search(ctx, req.Index, req.Query)
	if err != nil {
		s.log.WithContext(ctx).Errorf("search proxy on %s failed: %v", req.Index, err)
		f := &domain.ProxyFailure{Error: ProxyFailureTitle, Message: errors.FromError(err).Message}
		if st := domain.UpstreamStatus(err); st > 0 {
			f.Details = fmt.Sprintf("upstream status %d", st)
		}
		return nil, f, 500
	}
	return domain.NewHitList(hits), nil, 200
}

// ListMine 当前用户的报告，搜索词变化时页码回到 1
func (s *DashboardService) ListMine(ctx context.Context, sess *session.Session, req *ListMineReq) (*ListMineReply, error) {
	page := req.Page
	if page < 1 || req.Q != req.PrevQ {
		page = 1
	}
	email := sess.Email(ctx)
	reply := &ListMineReply{Reports: []*domain.Report{}, Page: page, Email: email, Q: req.Q}
	if email == "" {
		return reply, nil
	}

	reports, err := s.reports.Aggregate(ctx, email)
	if err != nil {
		return nil, err
	}
	view := usecase.BuildView(reports, req.Q, page)
	reply.Reports = view.Reports
	reply.Total = view.Total
	reply.TotalPages = view.TotalPages
	reply.Polling = domain.HasPending(reports)
	return reply, nil
}

// SuggestKeywords 主题分析
func (s *DashboardService) SuggestKeywords(ctx context.Context, req *KeywordsReq) (*KeywordsReply, error) {
	kws, err := s.requests.NewFlow().Analyze(ctx, req.Topic)
	if err != nil {
		return nil, err
	}
	return &KeywordsReply{Keywords: kws}, nil
}

// Generate 提交报告生成，成功后记住邮箱
func (s *DashboardService) Generate(ctx context.Context, sess *session.Session, req *GenerateReq) (*ActionReply, error) {
	flow, err := s.requests.Restore(req.Topic, req.Keywords)
	if err != nil {
		return nil, err
	}
	res, err := flow.Generate(ctx, usecase.GenerateForm{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Email:     req.Email,
	}, sess)
	if err != nil {
		return nil, err
	}
	n := flow.Notification()
	return &ActionReply{Status: res.Status, Message: n.Message, Notification: n}, nil
}

// Regenerate 重新生成失败的任务，邮箱缺省取会话邮箱；成功后附带刷新后的列表
func (s *DashboardService) Regenerate(ctx context.Context, sess *session.Session, req *RegenerateReq) (*ActionReply, error) {
	email := req.Email
	if email == "" {
		email = sess.Email(ctx)
	}

	var refreshed []*domain.Report
	refresh := usecase.RefresherFunc(func(ctx context.Context) {
		reports, err := s.reports.Aggregate(ctx, email)
		if err != nil {
			s.log.WithContext(ctx).Warnf("refresh after regenerate failed: %v", err)
			return
		}
		refreshed = reports
	})

	flow := s.requests.NewFlow()
	if _, err := flow.Regenerate(ctx, req.JobID, email, refresh); err != nil {
		return nil, err
	}
	n := flow.Notification()
	return &ActionReply{Status: "success", Message: n.Message, Notification: n, Reports: refreshed}, nil
}

// Login 登录并写入会话
func (s *DashboardService) Login(ctx context.Context, sess *session.Session, req *LoginReq) (*LoginReply, error) {
	out, err := sess.Login(ctx, domain.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return nil, err
	}
	return &LoginReply{User: out.User}, nil
}

// Logout 清除会话
func (s *DashboardService) Logout(ctx context.Context, sess *session.Session) *StatusReply {
	sess.Logout(ctx)
	return &StatusReply{Status: "success"}
}

// NewPoller 为一个订阅者创建轮询控制器
func (s *DashboardService) NewPoller(opts ...poller.Option) *poller.Controller {
	opts = append([]poller.Option{poller.WithInterval(s.poll.IntervalDuration())}, opts...)
	return poller.New(s.reports, s.logger, opts...)
}

func domainMessage(err error) string {
	return errors.FromError(err).Message
}

// PollSeconds 页面自动刷新间隔
func (s *DashboardService) PollSeconds() int {
	return int(s.poll.IntervalDuration().Seconds())
}
