package data

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/conf"
	"github.com/iWorld-y/sentiment_radar/app/dashboard/internal/domain"
)

func TestIdentityRepo_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		if r.PostForm.Get("username") != "a@b.co" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		assert.Equal(t, "", r.PostForm.Get("grant_type"))
		_, _ = io.WriteString(w, `{
			"access_token": "at",
			"refresh_token": "rt",
			"token_type": "bearer",
			"user": {"email": "a@b.co", "id": 42, "name": "Ana", "is_active": true, "is_verified": true, "created_at": "2025-01-01T00:00:00"}
		}`)
	}))
	defer srv.Close()

	ids := NewIdentityRepo(&conf.Auth{LoginUrl: srv.URL}, nil, log.DefaultLogger)

	s, err := ids.Login(context.Background(), domain.Credentials{Username: "a@b.co", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, "42", s.User.ID)
	assert.Equal(t, "a@b.co", s.User.Email)

	_, err = ids.Login(context.Background(), domain.Credentials{Username: "a@b.co", Password: "bad"})
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, domain.ReasonCredentials, errors.Reason(err))
}

func TestIdentityRepo_NoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token_type":"bearer"}`)
	}))
	defer srv.Close()

	_, err := NewIdentityRepo(&conf.Auth{LoginUrl: srv.URL}, nil, log.DefaultLogger).
		Login(context.Background(), domain.Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonUpstream, errors.Reason(err))
}

func TestIdentityRepo_NotConfigured(t *testing.T) {
	_, err := NewIdentityRepo(nil, nil, log.DefaultLogger).
		Login(context.Background(), domain.Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.Equal(t, "LOGIN_NOT_CONFIGURED", errors.Reason(err))
}
