package connector

import (
	"fmt"

	"github.com/ceyewan/gedid/xerrors"
)

// Sentinel Errors - 连接器专用的哨兵错误
var (
	ErrNotConnected  = xerrors.New("connector: not connected")
	ErrAlreadyClosed = xerrors.New("connector: already closed")
	ErrConnection    = xerrors.New("connector: connection failed")
	ErrTimeout       = xerrors.New("connector: timeout")
	ErrConfig        = xerrors.New("connector: invalid config")
	ErrHealthCheck   = xerrors.New("connector: health check failed")
)

// wrapErr 附加连接器上下文，结果同时匹配哨兵错误与原始错误
func wrapErr(sentinel error, kind, name string, err error) error {
	return fmt.Errorf("%s connector[%s]: %w: %w", kind, name, sentinel, err)
}
