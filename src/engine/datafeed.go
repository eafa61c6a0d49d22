package engine

import (
	"context"

	"breakoutbot/src/bar"
	"breakoutbot/src/cex"
)

// BarFeed 逐根推送K线更新（含形成中的K线）
type BarFeed interface {
	// Next 获取下一次更新，返回nil表示数据流结束
	Next(ctx context.Context) (*bar.Bar, error)

	// Close 停止数据流
	Close() error
}

// StreamFeed 交易所实时K线推送
type StreamFeed struct {
	stream cex.KlineStream
}

// NewStreamFeed 包装交易所K线推送
func NewStreamFeed(stream cex.KlineStream) *StreamFeed {
	return &StreamFeed{stream: stream}
}

func (f *StreamFeed) Next(ctx context.Context) (*bar.Bar, error) {
	ev, err := f.stream.Next(ctx)
	if err != nil || ev == nil {
		return nil, err
	}
	b := ev.Bar
	return &b, nil
}

func (f *StreamFeed) Close() error {
	return f.stream.Close()
}

// ReplayFeed 回放历史K线，用于离线演练实盘流程
type ReplayFeed struct {
	bars       []bar.Bar
	currentIdx int
	finished   bool
}

// NewReplayFeed 创建回放数据源，所有K线按已收盘推送
func NewReplayFeed(bars []bar.Bar) *ReplayFeed {
	return &ReplayFeed{bars: bars}
}

func (f *ReplayFeed) Next(ctx context.Context) (*bar.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.finished || f.currentIdx >= len(f.bars) {
		return nil, nil // 数据流结束
	}

	b := f.bars[f.currentIdx]
	b.Complete = true
	f.currentIdx++
	return &b, nil
}

func (f *ReplayFeed) Close() error {
	f.finished = true
	return nil
}
