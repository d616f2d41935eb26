package util

import "time"

// Clock 便于在测试中固定当前时间
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
