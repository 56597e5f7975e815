package clog

import (
	"log/slog"
	"time"

	"github.com/ceyewan/gedid/xerrors"
)

// Field 是 slog.Attr 的类型别名，实现零内存分配
type Field = slog.Attr

// String 创建字符串字段
func String(k, v string) Field {
	return slog.String(k, v)
}

// Int 创建整数字段
func Int(k string, v int) Field {
	return slog.Int(k, v)
}

// Int64 创建64位整数字段
func Int64(k string, v int64) Field {
	return slog.Int64(k, v)
}

// Bool 创建布尔字段
func Bool(k string, v bool) Field {
	return slog.Bool(k, v)
}

// Duration 创建时间长度字段
func Duration(k string, v time.Duration) Field {
	return slog.Duration(k, v)
}

// Any 创建任意类型字段
func Any(k string, v any) Field {
	return slog.Any(k, v)
}

// Error 错误字段
//
// 普通错误只输出 err_msg；错误链中带有 xerrors.CodedError 时，
// 输出嵌套结构 error={msg="...", code="..."}，便于按错误码聚合。
// err 为 nil 时返回空字段，Logger 会忽略它。
func Error(err error) Field {
	if err == nil {
		return slog.String("", "")
	}
	if code := xerrors.GetCode(err); code != "" {
		return ErrorWithCode(err, code)
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 包含错误代码的错误字段
//
// 示例：
//
//	logger.Error("follow failed", clog.ErrorWithCode(err, "engine_not_found"))
func ErrorWithCode(err error, code string) Field {
	if err == nil {
		return slog.Group("error", slog.String("code", code))
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}
