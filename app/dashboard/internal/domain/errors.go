package domain

import (
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
)

const (
	ReasonValidation   = "VALIDATION_FAILED"
	ReasonUpstream     = "UPSTREAM_FAILED"
	ReasonFetchReports = "REPORTS_FETCH_FAILED"
	ReasonSession      = "SESSION_MISSING"
	ReasonCredentials  = "INVALID_CREDENTIALS"
)

// 默认提示文案
const (
	MsgFetchReports    = "Failed to fetch reports"
	MsgInvalidResponse = "Invalid response from server"
	MsgUnknownError    = "Unknown error"
)

// ValidationError 本地校验失败，不会产生网络请求
func ValidationError(field, message string) *errors.Error {
	return errors.BadRequest(ReasonValidation, message).WithMetadata(map[string]string{"field": field})
}

// UpstreamError 外部服务返回非 2xx 或无法解析的响应
func UpstreamError(status int, message string) *errors.Error {
	md := map[string]string{}
	if status > 0 {
		md["upstream_status"] = strconv.Itoa(status)
	}
	return errors.New(http.StatusBadGateway, ReasonUpstream, message).WithMetadata(md)
}

// FetchError 报告聚合失败
func FetchError(message string) *errors.Error {
	if message == "" {
		message = MsgFetchReports
	}
	return errors.New(http.StatusBadGateway, ReasonFetchReports, message)
}

// SessionError 缺少或过期的登录态
func SessionError(message string) *errors.Error {
	return errors.Unauthorized(ReasonSession, message)
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	return errors.Reason(err) == ReasonValidation
}

// ErrorField 返回校验错误对应的表单字段
func ErrorField(err error) string {
	if e := errors.FromError(err); e != nil {
		return e.Metadata["field"]
	}
	return ""
}

// UpstreamStatus 返回上游 HTTP 状态码，未知时为 0
func UpstreamStatus(err error) int {
	e := errors.FromError(err)
	if e == nil {
		return 0
	}
	n, _ := strconv.Atoi(e.Metadata["upstream_status"])
	return n
}
