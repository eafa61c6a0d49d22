package bar

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCapacity 缓冲区容量非法
var ErrInvalidCapacity = errors.New("invalid store capacity, must be greater than 0")

// MalformedBarError K线时间戳非单调/重复或字段非法，此类K线被拒绝而不会写入
type MalformedBarError struct {
	Timestamp time.Time
	Last      time.Time
	Reason    string
}

func (e *MalformedBarError) Error() string {
	if e.Last.IsZero() {
		return fmt.Sprintf("malformed bar at %s: %s", e.Timestamp.Format(time.RFC3339), e.Reason)
	}
	return fmt.Sprintf("malformed bar at %s (last %s): %s",
		e.Timestamp.Format(time.RFC3339), e.Last.Format(time.RFC3339), e.Reason)
}
