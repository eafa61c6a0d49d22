package bar

// Store 单一交易对的K线环形缓冲区
// 只允许最后一根K线处于形成中状态
type Store struct {
	data     []Bar
	capacity int
	front    int
	length   int
}

// NewStore 创建指定容量的K线缓冲区
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Store{
		data:     make([]Bar, capacity),
		capacity: capacity,
	}, nil
}

// Len 当前K线数量
func (s *Store) Len() int {
	return s.length
}

// Capacity 缓冲区容量
func (s *Store) Capacity() int {
	return s.capacity
}

// At 按顺序获取第 index 根K线，负数从尾部计算
func (s *Store) At(index int) (Bar, bool) {
	if index < 0 {
		index += s.length
	}
	if index < 0 || index >= s.length {
		return Bar{}, false
	}
	return s.data[(s.front+index)%s.capacity], true
}

// Last 最新一根K线
func (s *Store) Last() (Bar, bool) {
	return s.At(-1)
}

// Upsert 写入一根K线
// 与最后一根形成中K线同时间戳则覆盖，时间更晚则追加（超出容量淘汰最旧的），
// 其余情况返回 MalformedBarError 且不修改缓冲区。
// 返回值 replaced 表示覆盖了已有K线。
func (s *Store) Upsert(b Bar) (replaced bool, err error) {
	if err := b.Validate(); err != nil {
		return false, err
	}

	last, ok := s.Last()
	if ok {
		switch {
		case b.Timestamp.Equal(last.Timestamp):
			if last.Complete {
				return false, &MalformedBarError{Timestamp: b.Timestamp, Last: last.Timestamp, Reason: "duplicate of a complete bar"}
			}
			s.data[(s.front+s.length-1)%s.capacity] = b
			return true, nil
		case b.Timestamp.Before(last.Timestamp):
			return false, &MalformedBarError{Timestamp: b.Timestamp, Last: last.Timestamp, Reason: "timestamp goes backwards"}
		}
	}

	if ok && !last.Complete {
		// 新K线到来时上一根视为已收盘
		s.data[(s.front+s.length-1)%s.capacity].Complete = true
	}
	s.push(b)
	return false, nil
}

func (s *Store) push(b Bar) {
	if s.length == s.capacity {
		s.front = (s.front + 1) % s.capacity
		s.length--
	}
	s.data[(s.front+s.length)%s.capacity] = b
	s.length++
}

// Load 批量装载历史K线，最后一根按 lastForming 标记为形成中
func (s *Store) Load(bars []Bar, lastForming bool) error {
	for i, b := range bars {
		b.Complete = !(lastForming && i == len(bars)-1)
		if _, err := s.Upsert(b); err != nil {
			return err
		}
	}
	return nil
}

// Complete 按时间顺序返回所有已收盘K线的副本
func (s *Store) Complete() []Bar {
	out := make([]Bar, 0, s.length)
	for i := 0; i < s.length; i++ {
		b := s.data[(s.front+i)%s.capacity]
		if b.Complete {
			out = append(out, b)
		}
	}
	return out
}

// Bars 按时间顺序返回全部K线的副本
func (s *Store) Bars() []Bar {
	out := make([]Bar, s.length)
	for i := 0; i < s.length; i++ {
		out[i] = s.data[(s.front+i)%s.capacity]
	}
	return out
}
