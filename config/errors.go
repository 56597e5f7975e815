package config

import (
	"fmt"

	"github.com/ceyewan/gedid/xerrors"
)

var (
	// ErrValidationFailed 验证失败
	ErrValidationFailed = xerrors.New("configuration validation failed")
	// ErrLoadFailed 读取或合并配置文件失败
	ErrLoadFailed = xerrors.New("configuration load failed")
)

// WrapLoadError 包装加载错误，结果同时匹配 ErrLoadFailed 与原始错误
func WrapLoadError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrLoadFailed, message, err)
}
