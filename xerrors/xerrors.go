// Package xerrors 提供 gedid 统一的错误包装工具。
//
// 组件在 errors.go 中用 New 声明哨兵错误，返回时通过 Wrap/Wrapf 附加上下文，
// 需要机器可读的分类时使用 WithCode。调用方始终通过 Is/As 判断错误种类。
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// 标准库函数再导出
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Wrap 在错误前加上上下文，nil 原样返回
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 同 Wrap，上下文按格式化生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// CodedError 携带错误码，如 "backend_failure"、"worker_id_out_of_range"
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return "[" + e.Code + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// WithCode 为错误附加错误码，最外层已是同一错误码时不再重复包装
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	if coded, ok := err.(*CodedError); ok && coded.Code == code {
		return err
	}
	return &CodedError{Code: code, Cause: err}
}

// GetCode 返回错误链上最外层的错误码，没有则返回空串
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// IsAny err 命中任意一个 target 时返回 true
func IsAny(err error, targets ...error) bool {
	if err == nil {
		return false
	}
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Must 初始化阶段使用，err 不为 nil 时 panic
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Errorf("must: %w", err))
	}
	return v
}

// MultiError 多个相互独立的错误，例如按顺序关闭多个连接器时的失败
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	msgs := make([]string, 0, len(m.Errors))
	for _, err := range m.Errors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 合并错误：忽略 nil，展开嵌套的 MultiError，只剩一个时直接返回它
func Combine(errs ...error) error {
	var flat []error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if multi, ok := err.(*MultiError); ok {
			flat = append(flat, multi.Errors...)
			continue
		}
		flat = append(flat, err)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &MultiError{Errors: flat}
}
