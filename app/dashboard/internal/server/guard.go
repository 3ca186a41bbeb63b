package server

import (
	nethttp "net/http"
	"strings"

	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/session"
)

const loginPath = "/login"

// guarded 接口、静态资源和 favicon 不做跳转
func guarded(path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/"),
		strings.HasPrefix(path, "/static/"),
		path == "/favicon.ico":
		return false
	}
	return true
}

// Guard 未登录访问页面跳转到 /login，已登录访问 /login 跳转到首页
func Guard() http.FilterFunc {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if guarded(r.URL.Path) {
				authed := session.HasAccessToken(r)
				if !authed && r.URL.Path != loginPath {
					nethttp.Redirect(w, r, loginPath, nethttp.StatusFound)
					return
				}
				if authed && r.URL.Path == loginPath {
					nethttp.Redirect(w, r, "/", nethttp.StatusFound)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
