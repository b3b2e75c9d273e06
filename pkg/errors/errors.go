package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError 课程/名册配置缺失或格式错误
// 启动阶段出现时为致命错误；请求阶段表示所请求的课程未配置
type ConfigurationError struct {
	Subject string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "配置错误"
	if e.Subject != "" {
		msg += fmt.Sprintf(" [%s]", e.Subject)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError 用户输入校验失败，操作中止且无副作用
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "参数校验失败: " + e.Reason
	}
	return fmt.Sprintf("参数校验失败 [%s]: %s", e.Field, e.Reason)
}

// EmptyResultWarning 指定区间内无课次，报表退化为仅表头
// 不是错误：随结果返回并记录日志
type EmptyResultWarning struct {
	Subject string
	Sheet   string
}

func (w *EmptyResultWarning) Error() string {
	return fmt.Sprintf("区间内无课次: %s", w.Sheet)
}

// NewConfigurationError 构造 ConfigurationError
func NewConfigurationError(subject, reason string, err error) error {
	return &ConfigurationError{Subject: subject, Reason: reason, Err: err}
}

// NewValidationError 构造 ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsConfiguration 判断错误链中是否包含 ConfigurationError
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidation 判断错误链中是否包含 ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
