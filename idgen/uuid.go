package idgen

import (
	"context"

	"github.com/google/uuid"

	"github.com/ceyewan/gedid/xerrors"
)

// 支持的 UUID 版本
const (
	UUIDv4 = "v4"
	UUIDv7 = "v7"
)

// NewUUIDV7 生成 UUID v7 (时间排序)
func NewUUIDV7() (string, error) {
	v7, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return v7.String(), nil
}

// NewUUIDV4 生成 UUID v4 (随机)
func NewUUIDV4() (string, error) {
	v4, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return v4.String(), nil
}

// UUIDEngine 无状态的 UUID 引擎，默认 v4
type UUIDEngine struct {
	baseEngine

	version string
}

// UUIDOption UUID 引擎选项
type UUIDOption func(*UUIDEngine)

// WithUUIDVersion 设置 UUID 版本，支持 "v4" | "v7"
func WithUUIDVersion(version string) UUIDOption {
	return func(u *UUIDEngine) {
		u.version = version
	}
}

// NewUUIDEngine 创建 UUID 引擎
//
// 使用示例:
//
//	eng, _ := idgen.NewUUIDEngine(idgen.WithUUIDVersion(idgen.UUIDv7))
func NewUUIDEngine(opts ...UUIDOption) (*UUIDEngine, error) {
	u := &UUIDEngine{version: UUIDv4}
	for _, opt := range opts {
		opt(u)
	}
	switch u.version {
	case "":
		u.version = UUIDv4
	case UUIDv4, UUIDv7:
	default:
		return nil, xerrors.WithCode(ErrInvalidInput, "unsupported_uuid_version")
	}
	return u, nil
}

func (u *UUIDEngine) Name() string {
	return EngineUUID
}

// Version 返回使用的 UUID 版本
func (u *UUIDEngine) Version() string {
	return u.version
}

func (u *UUIDEngine) Follow(context.Context, string, int64) error {
	return nil
}

func (u *UUIDEngine) Next(context.Context, string) (ID, error) {
	gen := NewUUIDV4
	if u.version == UUIDv7 {
		gen = NewUUIDV7
	}
	s, err := gen()
	if err != nil {
		return ID{}, backendError(EngineUUID, "", err)
	}
	return StringID(s), nil
}
