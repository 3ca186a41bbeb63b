package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

type identityRepo struct {
	loginURL string
	client   *http.Client
	log      *log.Helper
}

// NewIdentityRepo 身份服务客户端，登录接口为 OAuth2 password 表单
func NewIdentityRepo(c *conf.Auth, u *conf.Upstream, logger log.Logger) repo.IdentityService {
	var loginURL string
	if c != nil {
		loginURL = c.LoginUrl
	}
	return &identityRepo{
		loginURL: loginURL,
		client:   &http.Client{Timeout: u.TimeoutDuration()},
		log:      log.NewHelper(logger),
	}
}

func (r *identityRepo) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	if r.loginURL == "" {
		return nil, errors.InternalServer("LOGIN_NOT_CONFIGURED", "Login API URL not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "")
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("scope", "")
	form.Set("client_id", "")
	form.Set("client_secret", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		r.log.Errorf("login request failed: %v", err)
		return nil, domain.UpstreamError(0, "identity service unavailable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		r.log.Warnf("login rejected for %s (status %d)", creds.Username, res.StatusCode)
		return nil, errors.Unauthorized(domain.ReasonCredentials, "Invalid email or password")
	}

	var s domain.Session
	if err := json.NewDecoder(res.Body).Decode(&s); err != nil {
		return nil, domain.UpstreamError(res.StatusCode, fmt.Sprintf("decode response failed: %v", err))
	}
	if s.AccessToken == "" {
		return nil, domain.UpstreamError(res.StatusCode, "identity service returned no access token")
	}
	return &s, nil
}
