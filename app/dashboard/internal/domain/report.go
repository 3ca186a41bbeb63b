package domain

// 报告状态。任务索引中可能出现其它值，原样透传
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Report 展示给用户的统一报告模型，每轮聚合重新生成，不做本地持久化
type Report struct {
	Topic     string   `json:"topic"`
	Keywords  []string `json:"keywords"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	CreatedAt string   `json:"created_at"`
	Status    string   `json:"status"`
	// Progress 仅在 processing 状态下有意义，其余状态原样携带
	Progress int      `json:"progress"`
	JobID    string   `json:"job_id,omitempty"`
	Filename string   `json:"filename,omitempty"`
	URL      string   `json:"url,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
}

// IsProcessing 报告是否仍在生成中
func (r *Report) IsProcessing() bool {
	return r.Status == StatusProcessing
}

// CanRegenerate 失败且带有任务 ID 的报告可以重新生成
func (r *Report) CanRegenerate() bool {
	return r.Status == StatusFailed && r.JobID != ""
}

// HasPending 列表中是否存在未结束的报告
func HasPending(reports []*Report) bool {
	for _, r := range reports {
		if r.IsProcessing() {
			return true
		}
	}
	return false
}

// Summary 报告摘要，只读展示数据
type Summary struct {
	Summary SummaryBody `json:"summary"`
}

type SummaryBody struct {
	ScopeAndSentiment  PointSection    `json:"scope_and_sentiment"`
	DominantTopics     TopicSection    `json:"dominant_topics"`
	PeakPeriods        PointSection    `json:"peak_periods"`
	NegativeSentiment  NegativeSection `json:"negative_sentiment"`
	KeyRecommendations PointSection    `json:"key_recommendations"`
}

type PointSection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type TopicSection struct {
	Title  string          `json:"title"`
	Topics []DominantTopic `json:"topics"`
}

type DominantTopic struct {
	Name      string   `json:"name"`
	Reach     string   `json:"reach"`
	Sentiment string   `json:"sentiment"`
	KeyPoints []string `json:"key_points"`
}

type NegativeSection struct {
	Title    string            `json:"title"`
	Mentions []NegativeMention `json:"mentions"`
}

type NegativeMention struct {
	Source      string `json:"source"`
	Description string `json:"description"`
}

// Notification 页面提示
type Notification struct {
	Type    string `json:"type"` // success | error
	Title   string `json:"title"`
	Message string `json:"message"`
}
