package domain

import (
	"encoding/json"
	"fmt"
)

// Credentials 登录表单
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Tokens 身份服务签发的令牌
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// User 身份服务返回的用户资料
type User struct {
	Email      string `json:"email"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// UnmarshalJSON 身份服务的 id 是数字，统一保存为字符串
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		*plain
		ID json.RawMessage `json:"id"`
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := scalarString(aux.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	return nil
}

// Session 登录成功后的会话
type Session struct {
	Tokens
	User User `json:"user"`
}
