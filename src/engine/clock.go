package engine

import "time"

// SessionClock 实盘会话时钟，从会话开始计算固定的时长预算
// 在每个事件处理时同步检查，不使用后台计时器
type SessionClock struct {
	start  time.Time
	budget time.Duration
}

// NewSessionClock 创建会话时钟，budget<=0 表示不限时
func NewSessionClock(start time.Time, budget time.Duration) *SessionClock {
	return &SessionClock{start: start, budget: budget}
}

// Expired 在 at 时刻预算是否已用完
func (c *SessionClock) Expired(at time.Time) bool {
	if c.budget <= 0 {
		return false
	}
	return at.Sub(c.start) >= c.budget
}

// Deadline 会话截止时间，不限时返回零值
func (c *SessionClock) Deadline() time.Time {
	if c.budget <= 0 {
		return time.Time{}
	}
	return c.start.Add(c.budget)
}

// Remaining 剩余时长
func (c *SessionClock) Remaining(at time.Time) time.Duration {
	if c.budget <= 0 {
		return time.Duration(1<<63 - 1)
	}
	if r := c.start.Add(c.budget).Sub(at); r > 0 {
		return r
	}
	return 0
}
