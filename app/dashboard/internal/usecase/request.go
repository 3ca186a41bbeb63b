package usecase

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

// FlowState 报告申请流程的状态
type FlowState string

const (
	StateIdle          FlowState = "idle"
	StateAnalyzing     FlowState = "analyzing"
	StateKeywordsReady FlowState = "keywords-ready"
	StateGenerating    FlowState = "generating"
	StateSubmitted     FlowState = "submitted"
)

// DateLayout generate-report 接口的日期格式
const DateLayout = "2006-01-02"

// 表单字段
const (
	FieldTopic    = "topic"
	FieldKeyword  = "keyword"
	FieldKeywords = "keywords"
	FieldDate     = "date"
	FieldEmail    = "email"
	FieldJobID    = "job_id"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail local@domain.tld 格式校验，不做真实性验证
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// EmailSaver 记住最近一次使用的报告邮箱
type EmailSaver interface {
	SaveEmail(ctx context.Context, email string) error
}

// Refresher 重新生成成功后触发一次聚合
type Refresher interface {
	Refresh(ctx context.Context)
}

// RefresherFunc 函数适配 Refresher
type RefresherFunc func(ctx context.Context)

func (f RefresherFunc) Refresh(ctx context.Context) { f(ctx) }

// GenerateForm 提交报告时的日期与邮箱
type GenerateForm struct {
	StartDate string
	EndDate   string
	Email     string
}

// RequestUseCase 创建报告申请流程
type RequestUseCase struct {
	jobs   repo.JobService
	logger log.Logger
}

func NewRequestUseCase(jobs repo.JobService, logger log.Logger) *RequestUseCase {
	return &RequestUseCase{jobs: jobs, logger: logger}
}

// NewFlow 新的空流程
func (uc *RequestUseCase) NewFlow() *RequestFlow {
	return &RequestFlow{
		jobs:     uc.jobs,
		log:      log.NewHelper(uc.logger),
		state:    StateIdle,
		keywords: []string{},
	}
}

// Restore 用已有的主题和关键词恢复到 keywords-ready，关键词去重规则与 AddKeyword 相同
func (uc *RequestUseCase) Restore(topic string, keywords []string) (*RequestFlow, error) {
	f := uc.NewFlow()
	f.topic = topic
	for _, k := range keywords {
		if err := f.AddKeyword(k); err != nil {
			return nil, err
		}
	}
	f.state = StateKeywordsReady
	return f, nil
}

// RequestFlow 主题分析 -> 关键词编辑 -> 提交生成 的状态机。
// failed 为错误覆盖层，只会在 analyzing 或 generating 之后出现。
type RequestFlow struct {
	jobs repo.JobService
	log  *log.Helper

	mu           sync.Mutex
	state        FlowState
	failed       bool
	topic        string
	keywords     []string
	notification *domain.Notification
}

func (f *RequestFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Failed 是否处于错误覆盖层
func (f *RequestFlow) Failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

func (f *RequestFlow) Topic() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topic
}

// Keywords 返回关键词副本，顺序即展示顺序
func (f *RequestFlow) Keywords() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.keywords...)
}

// Notification 最近一次提示，没有时为 nil
func (f *RequestFlow) Notification() *domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notification
}

// DismissNotification 关闭提示
func (f *RequestFlow) DismissNotification() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notification = nil
}

func (f *RequestFlow) setState(s FlowState, failed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	f.failed = failed
}

func (f *RequestFlow) notify(typ, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notification = &domain.Notification{Type: typ, Title: title, Message: message}
}

// Analyze 获取主题的推荐关键词，成功后替换当前关键词列表
func (f *RequestFlow) Analyze(ctx context.Context, topic string) ([]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domain.ValidationError(FieldTopic, "Please enter a main keyword")
	}

	f.mu.Lock()
	f.topic = topic
	f.state = StateAnalyzing
	f.failed = false
	f.mu.Unlock()

	keywords, err := f.jobs.SuggestKeywords(ctx, topic)
	if err != nil {
		f.log.WithContext(ctx).Errorf("suggest keywords for %q failed: %v", topic, err)
		f.setState(StateAnalyzing, true)
		f.notify("error", "Analysis Failed", "Failed to fetch relevant keywords. Please try again.")
		return nil, errors.New(errors.Code(err), domain.ReasonUpstream, "Failed to fetch relevant keywords. Please try again.").
			WithMetadata(errors.FromError(err).Metadata).
			WithCause(err)
	}
	if keywords == nil {
		keywords = []string{}
	}

	f.mu.Lock()
	f.keywords = append([]string{}, keywords...)
	f.state = StateKeywordsReady
	f.mu.Unlock()
	return f.Keywords(), nil
}

// AddKeyword 空白输入忽略；与已有关键词去空格后相同则拒绝；否则按输入原样追加
func (f *RequestFlow) AddKeyword(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keywords {
		if strings.TrimSpace(k) == trimmed {
			return domain.ValidationError(FieldKeyword, "This keyword already exists in the list")
		}
	}
	f.keywords = append(f.keywords, text)
	return nil
}

// RemoveKeyword 删除第一个完全相同的关键词
func (f *RequestFlow) RemoveKeyword(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, k := range f.keywords {
		if k == text {
			f.keywords = append(f.keywords[:i], f.keywords[i+1:]...)
			return
		}
	}
}

// Generate 校验表单后提交生成任务。任何校验失败都不会发起请求。
func (f *RequestFlow) Generate(ctx context.Context, form GenerateForm, saver EmailSaver) (*repo.GenerateResult, error) {
	topic := f.Topic()
	keywords := f.Keywords()

	if len(keywords) == 0 {
		return nil, domain.ValidationError(FieldKeywords, "Please add at least one keyword before generating a report")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, domain.ValidationError(FieldTopic, "Please enter a main keyword")
	}
	if err := validateDates(form.StartDate, form.EndDate); err != nil {
		return nil, err
	}
	if form.Email == "" {
		return nil, domain.ValidationError(FieldEmail, "Please enter your email to receive the report")
	}
	if !ValidEmail(form.Email) {
		return nil, domain.ValidationError(FieldEmail, "Please enter a valid email address")
	}

	f.setState(StateGenerating, false)
	res, err := f.jobs.GenerateReport(ctx, &repo.GenerateRequest{
		Topic:     topic,
		StartDate: form.StartDate,
		EndDate:   form.EndDate,
		Keywords:  keywords,
		Email:     form.Email,
	})
	if err == nil && res.Status != "success" {
		msg := res.Message
		if msg == "" {
			msg = "Failed to generate report"
		}
		err = domain.UpstreamError(0, msg)
	}
	if err != nil {
		f.log.WithContext(ctx).Errorf("generate report for %q failed: %v", topic, err)
		f.setState(StateGenerating, true)
		f.notify("error", "Report Generation Failed", errors.FromError(err).Message)
		return nil, err
	}

	if saver != nil {
		if err := saver.SaveEmail(ctx, form.Email); err != nil {
			f.log.WithContext(ctx).Warnf("save report email failed: %v", err)
		}
	}
	f.setState(StateSubmitted, false)
	f.notify("success", "Report Generation Started",
		"Your report is being generated. It will be sent to "+form.Email+" when it is ready.")
	return res, nil
}

func validateDates(start, end string) error {
	if start == "" || end == "" {
		return domain.ValidationError(FieldDate, "Please select a date range")
	}
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return domain.ValidationError(FieldDate, "Invalid start date")
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return domain.ValidationError(FieldDate, "Invalid end date")
	}
	if from.After(to) {
		return domain.ValidationError(FieldDate, "Start date must not be after end date")
	}
	return nil
}

// Regenerate 重新生成失败的任务，成功后通过 refresher 立即刷新列表
func (f *RequestFlow) Regenerate(ctx context.Context, jobID, email string, refresher Refresher) (map[string]any, error) {
	if jobID == "" {
		return nil, domain.ValidationError(FieldJobID, "Job ID and email are required")
	}
	if email == "" {
		return nil, domain.ValidationError(FieldEmail, "Job ID and email are required")
	}

	out, err := f.jobs.RegenerateReport(ctx, jobID, email)
	if err != nil {
		f.log.WithContext(ctx).Errorf("regenerate job %s failed: %v", jobID, err)
		f.notify("error", "Regeneration Failed", errors.FromError(err).Message)
		return nil, err
	}

	f.notify("success", "Report Regeneration Started",
		"Your report is being regenerated. You will be notified when it is ready.")
	if refresher != nil {
		refresher.Refresh(ctx)
	}
	return out, nil
}
