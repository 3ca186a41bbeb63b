package service

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/poller"
)

// RegisterDashboardHTTPServer 注册 JSON 接口
func RegisterDashboardHTTPServer(srv *http.Server, s *DashboardService) {
	r := srv.Route("/")
	r.POST("/api/reports", s.searchProxyHandler)
	r.GET("/api/reports/mine", s.listMineHandler)
	r.GET("/api/reports/stream", s.streamHandler)
	r.POST("/api/keywords", s.keywordsHandler)
	r.POST("/api/reports/generate", s.generateHandler)
	r.POST("/api/reports/regenerate", s.regenerateHandler)
	r.POST("/api/session/login", s.loginHandler)
	r.POST("/api/session/logout", s.logoutHandler)
}

// searchProxyHandler 失败时使用代理自己的响应格式，不走 kratos 错误编码
func (s *DashboardService) searchProxyHandler(ctx http.Context) error {
	var in domain.SearchRequest
	if err := json.NewDecoder(ctx.Request().Body).Decode(&in); err != nil {
		return ctx.JSON(nethttp.StatusBadRequest, &domain.ProxyFailure{
			Error:   "Invalid request",
			Message: "malformed request body",
			Details: err.Error(),
		})
	}
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		list, failure, code := s.Search(c, req.(*domain.SearchRequest))
		if failure != nil {
			return proxyResult{code: code, body: failure}, nil
		}
		return proxyResult{code: code, body: list}, nil
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	res := out.(proxyResult)
	return ctx.JSON(res.code, res.body)
}

type proxyResult struct {
	code int
	body any
}

func (s *DashboardService) listMineHandler(ctx http.Context) error {
	q := ctx.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	in := ListMineReq{Q: q.Get("q"), Page: page, PrevQ: q.Get("prev_q")}
	if !q.Has("prev_q") {
		in.PrevQ = in.Q
	}
	sess := s.sessions.For(ctx.Response(), ctx.Request())
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.ListMine(c, sess, req.(*ListMineReq))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *DashboardService) keywordsHandler(ctx http.Context) error {
	var in KeywordsReq
	if err := ctx.Bind(&in); err != nil {
		return domain.ValidationError("body", "malformed request body")
	}
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.SuggestKeywords(c, req.(*KeywordsReq))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *DashboardService) generateHandler(ctx http.Context) error {
	var in GenerateReq
	if err := ctx.Bind(&in); err != nil {
		return domain.ValidationError("body", "malformed request body")
	}
	sess := s.sessions.For(ctx.Response(), ctx.Request())
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.Generate(c, sess, req.(*GenerateReq))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *DashboardService) regenerateHandler(ctx http.Context) error {
	var in RegenerateReq
	if err := ctx.Bind(&in); err != nil {
		return domain.ValidationError("body", "malformed request body")
	}
	sess := s.sessions.For(ctx.Response(), ctx.Request())
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.Regenerate(c, sess, req.(*RegenerateReq))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *DashboardService) loginHandler(ctx http.Context) error {
	var in LoginReq
	if err := ctx.Bind(&in); err != nil {
		return domain.ValidationError("body", "malformed request body")
	}
	sess := s.sessions.For(ctx.Response(), ctx.Request())
	h := ctx.Middleware(func(c context.Context, req interface{}) (interface{}, error) {
		return s.Login(c, sess, req.(*LoginReq))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *DashboardService) logoutHandler(ctx http.Context) error {
	sess := s.sessions.For(ctx.Response(), ctx.Request())
	return ctx.Result(200, s.Logout(ctx, sess))
}

// streamHandler 以 SSE 推送轮询结果：每次聚合一个 reports 事件，轮询结束时发送 idle 并关闭。
// 服务端超时只约束普通请求，流在轮询结束或客户端断开（写失败）时退出。
func (s *DashboardService) streamHandler(ctx http.Context) error {
	w := ctx.Response()
	flusher, ok := w.(nethttp.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	email := s.sessions.For(w, ctx.Request()).Email(ctx)
	if email == "" {
		return domain.SessionError("no report email in session")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(nethttp.StatusOK)
	flusher.Flush()

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.Request().Context()))
	defer cancel()

	updates := make(chan poller.Update, 1)
	ctrl := s.NewPoller(poller.OnUpdate(func(u poller.Update) {
		select {
		case updates <- u:
		case <-streamCtx.Done():
		}
	}))
	defer ctrl.Stop()

	ctrl.SetEmail(email)
	go ctrl.Refresh(streamCtx)

	for {
		select {
		case <-streamCtx.Done():
			return nil
		case u := <-updates:
			ev := StreamEvent{Reports: u.Reports, Polling: u.State == poller.Polling}
			if u.Err != nil {
				ev.Error = domainMessage(u.Err)
			}
			if err := writeEvent(w, "reports", ev); err != nil {
				s.log.Debugf("stream client gone: %v", err)
				return nil
			}
			flusher.Flush()
			if u.State == poller.Idle {
				if err := writeEvent(w, "idle", StatusReply{Status: string(poller.Idle)}); err == nil {
					flusher.Flush()
				}
				return nil
			}
		}
	}
}

func writeEvent(w nethttp.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
