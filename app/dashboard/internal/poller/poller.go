package poller

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

// State 轮询状态
type State string

const (
	Idle    State = "idle"
	Polling State = "polling"
)

// Aggregator 一次聚合
type Aggregator interface {
	Aggregate(ctx context.Context, email string) ([]*domain.Report, error)
}

// Update 一次被采纳的聚合结果
type Update struct {
	Token   uint64
	Reports []*domain.Report
	Err     error
	State   State
}

// Option 控制器选项
type Option func(*Controller)

// WithSchedule 自定义定时规则
func WithSchedule(s cron.Schedule) Option {
	return func(c *Controller) { c.schedule = s }
}

// WithInterval 固定间隔，不足一秒按一秒计
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.schedule = cron.Every(d) }
}

// OnUpdate 每次采纳新结果后回调，回调在锁外执行
func OnUpdate(fn func(Update)) Option {
	return func(c *Controller) { c.onUpdate = fn }
}

// Controller Idle ⇄ Polling 状态机。
// 邮箱已知且列表中存在 processing 报告时处于 Polling，此时只有一个定时任务在运行；
// 列表或邮箱变化时定时任务被移除并重新创建。每次聚合携带递增的 token，
// 早于已采纳结果的响应会被丢弃。
type Controller struct {
	agg      Aggregator
	cron     *cron.Cron
	schedule cron.Schedule
	onUpdate func(Update)
	log      *log.Helper

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	email   string
	reports []*domain.Report
	entry   cron.EntryID
	issued  uint64
	applied uint64
	stopped bool
}

// New 创建并启动控制器，调用方负责 Stop
func New(agg Aggregator, logger log.Logger, opts ...Option) *Controller {
	helper := log.NewHelper(logger)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		agg:      agg,
		schedule: cron.Every(conf.DefaultPollInterval),
		log:      helper,
		ctx:      ctx,
		cancel:   cancel,
		reports:  []*domain.Report{},
	}
	for _, o := range opts {
		o(c)
	}
	cl := NewCronLogger(helper)
	c.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	c.cron.Start()
	return c
}

// State 当前状态
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	if c.entry != 0 {
		return Polling
	}
	return Idle
}

// Email 当前邮箱
func (c *Controller) Email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.email
}

// Reports 最近一次采纳的列表
func (c *Controller) Reports() []*domain.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.Report{}, c.reports...)
}

// SetEmail 切换邮箱，重建定时任务
func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.email == email {
		return
	}
	c.email = email
	c.rescheduleLocked()
}

// SetReports 替换当前列表，重建定时任务
func (c *Controller) SetReports(reports []*domain.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reports == nil {
		reports = []*domain.Report{}
	}
	c.reports = reports
	c.rescheduleLocked()
}

// Refresh 立即聚合一次
func (c *Controller) Refresh(ctx context.Context) {
	c.run(ctx)
}

// Stop 移除定时任务并取消进行中的聚合，之后到达的结果全部丢弃
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.removeLocked()
	c.mu.Unlock()

	c.cancel()
	c.cron.Stop()
}

func (c *Controller) tick() {
	c.run(c.ctx)
}

func (c *Controller) run(ctx context.Context) {
	c.mu.Lock()
	if c.stopped || c.email == "" {
		c.mu.Unlock()
		return
	}
	c.issued++
	token := c.issued
	email := c.email
	c.mu.Unlock()

	reports, err := c.agg.Aggregate(ctx, email)
	c.apply(token, email, reports, err)
}

func (c *Controller) apply(token uint64, email string, reports []*domain.Report, err error) {
	c.mu.Lock()
	if c.stopped || token <= c.applied || email != c.email {
		c.mu.Unlock()
		c.log.Debugf("discard stale aggregation #%d", token)
		return
	}
	c.applied = token
	if err != nil {
		c.log.Warnf("aggregation #%d failed: %v", token, err)
	} else {
		if reports == nil {
			reports = []*domain.Report{}
		}
		c.reports = reports
		c.rescheduleLocked()
	}
	u := Update{
		Token:   token,
		Reports: append([]*domain.Report{}, c.reports...),
		Err:     err,
		State:   c.stateLocked(),
	}
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(u)
	}
}

func (c *Controller) rescheduleLocked() {
	c.removeLocked()
	if c.stopped || c.email == "" || !domain.HasPending(c.reports) {
		return
	}
	c.entry = c.cron.Schedule(c.schedule, cron.FuncJob(c.tick))
}

func (c *Controller) removeLocked() {
	if c.entry != 0 {
		c.cron.Remove(c.entry)
		c.entry = 0
	}
}
