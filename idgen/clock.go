package idgen

import "time"

// Clock 毫秒时钟，Snowflake 通过它读取当前时间
type Clock interface {
	NowMilli() int64
}

// SystemClock 系统墙上时钟
type SystemClock struct{}

func (SystemClock) NowMilli() int64 {
	return time.Now().UnixMilli()
}

// ClockFunc 将函数适配为 Clock
type ClockFunc func() int64

func (f ClockFunc) NowMilli() int64 {
	return f()
}
