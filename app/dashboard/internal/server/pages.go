package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/service"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/session"
)

//go:embed assets/*.html assets/static/*
var assets embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"has":  contains,
}

// pageData 所有页面共用的模板数据
type pageData struct {
	Title        string
	User         *domain.User
	Email        string
	Error        string
	FieldErrors  map[string]string
	Notification *domain.Notification

	Topic     string
	Keywords  []string
	Selected  []string
	StartDate string
	EndDate   string

	List           *service.ListMineReply
	RefreshSeconds int
}

type pages struct {
	svc       *service.DashboardService
	templates map[string]*template.Template
	refresh   int
	log       *log.Helper
}

func parsePages() (map[string]*template.Template, error) {
	out := map[string]*template.Template{}
	for _, name := range []string{"login", "index", "reports"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(assets, "assets/layout.html", "assets/"+name+".html")
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func registerPages(srv *http.Server, svc *service.DashboardService, logger log.Logger) {
	templates, err := parsePages()
	if err != nil {
		// 模板随二进制嵌入，解析失败只可能是构建问题
		panic(err)
	}
	p := &pages{
		svc:       svc,
		templates: templates,
		refresh:   svc.PollSeconds(),
		log:       log.NewHelper(logger),
	}

	static, _ := fs.Sub(assets, "assets")
	srv.HandlePrefix("/static/", nethttp.FileServer(nethttp.FS(static)))
	srv.HandleFunc("/favicon.ico", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusNoContent)
	})
	srv.HandleFunc("/login", p.login)
	srv.HandleFunc("/logout", p.logout)
	srv.HandleFunc("/", p.index)
	srv.HandleFunc("/generate", p.generate)
	srv.HandleFunc("/reports", p.reports)
	srv.HandleFunc("/reports/regenerate", p.regenerate)
}

func (p *pages) render(w nethttp.ResponseWriter, name string, status int, data *pageData) {
	var buf bytes.Buffer
	if err := p.templates[name].Execute(&buf, data); err != nil {
		p.log.Errorf("render %s: %v", name, err)
		nethttp.Error(w, "internal error", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (p *pages) base(r *nethttp.Request, sess *session.Session, title string) *pageData {
	d := &pageData{Title: title, FieldErrors: map[string]string{}, Email: sess.Email(r.Context())}
	if u, ok := sess.User(); ok {
		d.User = u
	}
	return d
}

// applyError 校验错误挂到对应字段，其余错误作为页面提示
func applyError(d *pageData, err error) {
	if domain.IsValidation(err) {
		d.FieldErrors[domain.ErrorField(err)] = errors.FromError(err).Message
		return
	}
	msg := errors.FromError(err).Message
	d.Error = msg
	d.Notification = &domain.Notification{Type: "error", Title: "Error", Message: msg}
}

func (p *pages) login(w nethttp.ResponseWriter, r *nethttp.Request) {
	sess := p.svc.Sessions().For(w, r)
	d := p.base(r, sess, "Sign in")
	switch r.Method {
	case nethttp.MethodGet:
		p.render(w, "login", nethttp.StatusOK, d)
	case nethttp.MethodPost:
		if err := r.ParseForm(); err != nil {
			d.Error = "Invalid form"
			p.render(w, "login", nethttp.StatusBadRequest, d)
			return
		}
		_, err := p.svc.Login(r.Context(), sess, &service.LoginReq{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		})
		if err != nil {
			d.Error = "Invalid email or password"
			if domain.IsValidation(err) {
				d.Error = errors.FromError(err).Message
			}
			p.render(w, "login", nethttp.StatusUnauthorized, d)
			return
		}
		nethttp.Redirect(w, r, "/", nethttp.StatusFound)
	default:
		w.WriteHeader(nethttp.StatusMethodNotAllowed)
	}
}

func (p *pages) logout(w nethttp.ResponseWriter, r *nethttp.Request) {
	p.svc.Logout(r.Context(), p.svc.Sessions().For(w, r))
	nethttp.Redirect(w, r, loginPath, nethttp.StatusFound)
}

// index 主题表单；带 topic 参数时展示推荐关键词
func (p *pages) index(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}
	sess := p.svc.Sessions().For(w, r)
	d := p.base(r, sess, "Report Generator")
	d.Topic = r.URL.Query().Get("topic")
	if d.Topic == "" && !r.URL.Query().Has("topic") {
		p.render(w, "index", nethttp.StatusOK, d)
		return
	}

	out, err := p.svc.SuggestKeywords(r.Context(), &service.KeywordsReq{Topic: d.Topic})
	if err != nil {
		applyError(d, err)
		p.render(w, "index", nethttp.StatusOK, d)
		return
	}
	d.Keywords = out.Keywords
	d.Selected = out.Keywords
	p.render(w, "index", nethttp.StatusOK, d)
}

// generate 勾选的关键词加上自定义关键词一并提交
func (p *pages) generate(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Redirect(w, r, "/", nethttp.StatusFound)
		return
	}
	sess := p.svc.Sessions().For(w, r)
	d := p.base(r, sess, "Report Generator")
	if err := r.ParseForm(); err != nil {
		d.Error = "Invalid form"
		p.render(w, "index", nethttp.StatusBadRequest, d)
		return
	}

	form := r.PostForm
	d.Topic = form.Get("topic")
	d.Keywords = form["suggested"]
	d.Selected = form["keyword"]
	d.StartDate = form.Get("start_date")
	d.EndDate = form.Get("end_date")
	d.Email = form.Get("email")

	keywords := append([]string{}, d.Selected...)
	if custom := form.Get("custom"); strings.TrimSpace(custom) != "" {
		keywords = append(keywords, custom)
		if !contains(d.Keywords, custom) {
			d.Keywords = append(d.Keywords, custom)
		}
		d.Selected = append(d.Selected, custom)
	}

	out, err := p.svc.Generate(r.Context(), sess, &service.GenerateReq{
		Topic:     d.Topic,
		Keywords:  keywords,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Email:     d.Email,
	})
	if err != nil {
		applyError(d, err)
		p.render(w, "index", nethttp.StatusOK, d)
		return
	}
	d.Notification = out.Notification
	p.render(w, "index", nethttp.StatusOK, d)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (p *pages) listData(r *nethttp.Request, sess *session.Session, d *pageData) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	req := &service.ListMineReq{Q: q.Get("q"), Page: page, PrevQ: q.Get("prev_q")}
	if !q.Has("prev_q") {
		req.PrevQ = req.Q
	}
	list, err := p.svc.ListMine(r.Context(), sess, req)
	if err != nil {
		applyError(d, err)
		list = &service.ListMineReply{Reports: []*domain.Report{}, Page: 1, Email: d.Email, Q: req.Q}
	}
	d.List = list
	if list.Polling {
		d.RefreshSeconds = p.refresh
	}
}

// reports 报告列表；存在生成中的报告时页面自动刷新
func (p *pages) reports(w nethttp.ResponseWriter, r *nethttp.Request) {
	sess := p.svc.Sessions().For(w, r)
	d := p.base(r, sess, "My Reports")
	p.listData(r, sess, d)
	p.render(w, "reports", nethttp.StatusOK, d)
}

func (p *pages) regenerate(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Redirect(w, r, "/reports", nethttp.StatusFound)
		return
	}
	sess := p.svc.Sessions().For(w, r)
	d := p.base(r, sess, "My Reports")
	if err := r.ParseForm(); err != nil {
		d.Error = "Invalid form"
		p.render(w, "reports", nethttp.StatusBadRequest, d)
		return
	}
	out, err := p.svc.Regenerate(r.Context(), sess, &service.RegenerateReq{
		JobID: r.PostForm.Get("job_id"),
		Email: r.PostForm.Get("email"),
	})
	if err != nil {
		d.Notification = &domain.Notification{Type: "error", Title: "Regeneration Failed", Message: errors.FromError(err).Message}
	} else {
		d.Notification = out.Notification
	}
	p.listData(r, sess, d)
	p.render(w, "reports", nethttp.StatusOK, d)
}
