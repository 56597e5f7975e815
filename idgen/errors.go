package idgen

import (
	"fmt"

	"github.com/ceyewan/gedid/xerrors"
)

var (
	// ErrEngineNotFound 引擎未注册，Loader 将其视为可跳过的错误
	ErrEngineNotFound = xerrors.New("idgen: engine not found")

	// ErrBusinessAlreadyBound 业务已绑定到某个引擎
	ErrBusinessAlreadyBound = xerrors.New("idgen: business already bound")

	// ErrBusinessNotBound 业务未绑定，或绑定仍在进行中
	ErrBusinessNotBound = xerrors.New("idgen: business not bound")

	// ErrClockRegression 系统时钟回拨
	ErrClockRegression = xerrors.New("idgen: clock moved backwards")

	// ErrBackendFailure 后端存储调用失败
	ErrBackendFailure = xerrors.New("idgen: backend failure")

	// ErrMalformedURI 绑定 URI 格式错误
	ErrMalformedURI = xerrors.New("idgen: malformed binding uri")

	// ErrInvalidInput 无效的输入
	ErrInvalidInput = xerrors.New("idgen: invalid input")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("idgen: connector is nil")

	// ErrWorkerIDExhausted WorkerID 已耗尽
	ErrWorkerIDExhausted = xerrors.New("idgen: no available worker id")

	// ErrLeaseExpired Etcd Lease 已过期
	ErrLeaseExpired = xerrors.New("idgen: lease expired")
)

// BusinessAlreadyBoundError 重复绑定时返回，携带已有绑定的引擎名
type BusinessAlreadyBoundError struct {
	Business string
	Engine   string
}

func (e *BusinessAlreadyBoundError) Error() string {
	return fmt.Sprintf("idgen: business %q already bound to engine %q", e.Business, e.Engine)
}

func (e *BusinessAlreadyBoundError) Is(target error) bool {
	return target == ErrBusinessAlreadyBound
}

// ClockRegressionError 时钟回拨，Delta 为回拨的毫秒数
type ClockRegressionError struct {
	Delta int64
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("idgen: clock moved backwards by %dms", e.Delta)
}

func (e *ClockRegressionError) Is(target error) bool {
	return target == ErrClockRegression
}

// backendError 包装后端错误，结果同时匹配 ErrBackendFailure 与原始错误
func backendError(engine, business string, err error) error {
	return xerrors.WithCode(
		fmt.Errorf("%s engine, business %q: %w: %w", engine, business, ErrBackendFailure, err),
		"backend_failure",
	)
}

func clientRequired(engine string) error {
	return xerrors.WithCode(ErrConnectorNil, engine+"_client_required")
}
