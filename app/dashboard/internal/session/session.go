package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/repo"
)

// Cookie 名称
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieUser         = "user"
	CookieReportEmail  = "reportEmail"
)

// 有效期。reportEmail 取浏览器允许的最大值
const (
	AccessTokenTTL  = 7 * 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
	UserTTL         = 7 * 24 * time.Hour
	ReportEmailTTL  = 400 * 24 * time.Hour
)

const defaultJwtKey = "default-secret"

// Manager 会话 Cookie 的签发与读取
type Manager struct {
	identity repo.IdentityService
	prefs    repo.PreferenceRepo
	jwtKey   []byte
	secure   bool
	now      func() time.Time
	log      *log.Helper
}

// NewManager prefs 可以为 nil
func NewManager(c *conf.Auth, identity repo.IdentityService, prefs repo.PreferenceRepo, logger log.Logger) *Manager {
	helper := log.NewHelper(logger)
	key := defaultJwtKey
	var secure bool
	if c != nil {
		if c.JwtKey != "" {
			key = c.JwtKey
		}
		secure = c.SecureCookies
	}
	if key == defaultJwtKey {
		helper.Warn("auth.jwt_key not set, user cookies are signed with the default key")
	}
	return &Manager{
		identity: identity,
		prefs:    prefs,
		jwtKey:   []byte(key),
		secure:   secure,
		now:      time.Now,
		log:      helper,
	}
}

// HasAccessToken 请求是否携带 access_token
func HasAccessToken(r *http.Request) bool {
	c, err := r.Cookie(CookieAccessToken)
	return err == nil && c.Value != ""
}

// For 绑定到一次请求/响应的会话
func (m *Manager) For(w http.ResponseWriter, r *http.Request) *Session {
	return &Session{m: m, w: w, r: r, written: map[string]string{}}
}

type userClaims struct {
	User domain.User `json:"user"`
	jwt.RegisteredClaims
}

func (m *Manager) signUser(u domain.User) (string, error) {
	now := m.now()
	claims := userClaims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(UserTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.jwtKey)
}

func (m *Manager) parseUser(token string) (*domain.User, error) {
	var claims userClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.jwtKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	return &claims.User, nil
}

// Session 单次请求内的会话视图。本次请求写出的 Cookie 立即对后续读取可见。
type Session struct {
	m       *Manager
	w       http.ResponseWriter
	r       *http.Request
	written map[string]string
}

func (s *Session) cookie(name string) string {
	if v, ok := s.written[name]; ok {
		return v
	}
	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Session) setCookie(name, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.Expires = s.m.now().Add(ttl)
		c.MaxAge = int(ttl.Seconds())
	} else {
		c.Value = ""
		c.Expires = time.Unix(0, 0)
		c.MaxAge = -1
	}
	http.SetCookie(s.w, c)
	s.written[name] = c.Value
}

// Tokens 当前令牌，没有 access_token 时 ok 为 false
func (s *Session) Tokens() (domain.Tokens, bool) {
	t := domain.Tokens{
		AccessToken:  s.cookie(CookieAccessToken),
		RefreshToken: s.cookie(CookieRefreshToken),
	}
	return t, t.AccessToken != ""
}

// User 校验签名后的用户资料，伪造或过期的 Cookie 视为未登录
func (s *Session) User() (*domain.User, bool) {
	raw := s.cookie(CookieUser)
	if raw == "" {
		return nil, false
	}
	u, err := s.m.parseUser(raw)
	if err != nil {
		s.m.log.Debugf("reject user cookie: %v", err)
		return nil, false
	}
	return u, true
}

// Email 报告邮箱：reportEmail Cookie -> 偏好存储 -> 登录用户邮箱
func (s *Session) Email(ctx context.Context) string {
	if email := s.cookie(CookieReportEmail); email != "" {
		return email
	}
	u, ok := s.User()
	if !ok {
		return ""
	}
	if s.m.prefs != nil && u.ID != "" {
		email, err := s.m.prefs.GetReportEmail(ctx, u.ID)
		if err != nil {
			s.m.log.WithContext(ctx).Warnf("load report email for %s: %v", u.ID, err)
		} else if email != "" {
			return email
		}
	}
	return u.Email
}

// SaveEmail 记住报告邮箱，登录状态下同步到偏好存储
func (s *Session) SaveEmail(ctx context.Context, email string) error {
	s.setCookie(CookieReportEmail, email, ReportEmailTTL)
	if s.m.prefs == nil {
		return nil
	}
	if u, ok := s.User(); ok && u.ID != "" {
		if err := s.m.prefs.SaveReportEmail(ctx, u.ID, email); err != nil {
			return fmt.Errorf("save report email: %w", err)
		}
	}
	return nil
}

// Login 调用身份服务并写入会话 Cookie
func (s *Session) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, domain.ValidationError("username", "Please enter your email and password")
	}
	sess, err := s.m.identity.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	signed, err := s.m.signUser(sess.User)
	if err != nil {
		return nil, fmt.Errorf("sign user cookie: %w", err)
	}
	s.setCookie(CookieAccessToken, sess.AccessToken, AccessTokenTTL)
	s.setCookie(CookieRefreshToken, sess.RefreshToken, RefreshTokenTTL)
	s.setCookie(CookieUser, signed, UserTTL)

	email := sess.User.Email
	if s.m.prefs != nil && sess.User.ID != "" {
		if saved, err := s.m.prefs.GetReportEmail(ctx, sess.User.ID); err == nil && saved != "" {
			email = saved
		}
	}
	if email != "" {
		s.setCookie(CookieReportEmail, email, ReportEmailTTL)
	}
	s.m.log.WithContext(ctx).Infof("user %s logged in", sess.User.Email)
	return sess, nil
}

// Logout 清除全部会话 Cookie 及偏好存储中的报告邮箱
func (s *Session) Logout(ctx context.Context) {
	if u, ok := s.User(); ok && s.m.prefs != nil && u.ID != "" {
		if err := s.m.prefs.DeleteReportEmail(ctx, u.ID); err != nil {
			s.m.log.WithContext(ctx).Warnf("delete report email for %s: %v", u.ID, err)
		}
	}
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieUser, CookieReportEmail} {
		s.setCookie(name, "", 0)
	}
}
