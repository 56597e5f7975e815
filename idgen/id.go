package idgen

import (
	"encoding/json"
	"strconv"
)

// ID 引擎发放的标识符，数值型或字符串型二选一
//
// Snowflake 与计数型引擎产出数值，UUID 引擎产出字符串。零值是空字符串 ID。
type ID struct {
	num     int64
	str     string
	numeric bool
}

// Int64ID 构造数值型 ID
func Int64ID(v int64) ID {
	return ID{num: v, numeric: true}
}

// StringID 构造字符串型 ID
func StringID(v string) ID {
	return ID{str: v}
}

// Int64 返回数值，字符串型 ID 返回 (0, false)
func (id ID) Int64() (int64, bool) {
	if !id.numeric {
		return 0, false
	}
	return id.num, true
}

// IsNumeric 是否为数值型
func (id ID) IsNumeric() bool {
	return id.numeric
}

// String 数值型返回十进制表示
func (id ID) String() string {
	if id.numeric {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

// MarshalJSON 数值型编码为 JSON number，字符串型编码为 JSON string
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
	return json.Marshal(id.str)
}

// UnmarshalJSON 与 MarshalJSON 对应，null 解码为零值
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = Int64ID(n)
	return nil
}
