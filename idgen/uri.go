package idgen

import (
	"net/url"
	"strconv"

	"github.com/ceyewan/gedid/xerrors"
)

// URIBinding 从绑定 URI 中解析出的三元组
type URIBinding struct {
	Engine   string
	Business string
	// StartID URI 中未携带端口时为 nil
	StartID *int64
}

// ParseURI 解析 "scheme://host[:startId]" 形式的绑定 URI
//
// scheme 为引擎名，host 为业务名，可选端口为起始值。
// 携带路径、查询串、用户信息的 URI 均视为格式错误。
func ParseURI(raw string) (URIBinding, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URIBinding{}, xerrors.Wrapf(ErrMalformedURI, "%q: %v", raw, err)
	}
	if u.Scheme == "" || u.Opaque != "" {
		return URIBinding{}, xerrors.Wrapf(ErrMalformedURI, "%q: missing engine scheme", raw)
	}
	if u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return URIBinding{}, xerrors.Wrapf(ErrMalformedURI, "%q: unexpected uri components", raw)
	}

	business := u.Hostname()
	if business == "" {
		return URIBinding{}, xerrors.Wrapf(ErrMalformedURI, "%q: missing business", raw)
	}

	b := URIBinding{Engine: u.Scheme, Business: business}
	if port := u.Port(); port != "" {
		start, err := strconv.ParseInt(port, 10, 64)
		if err != nil {
			return URIBinding{}, xerrors.Wrapf(ErrMalformedURI, "%q: start id: %v", raw, err)
		}
		b.StartID = &start
	}
	return b, nil
}
