package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"breakoutbot/src/cex"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testError = errors.New("test error")

type mockStream struct {
	events []*cex.AccountEvent
	idx    int
	block  bool // 耗尽后阻塞直到 ctx 结束
	closed bool
}

func (m *mockStream) Next(ctx context.Context) (*cex.AccountEvent, error) {
	if m.idx < len(m.events) {
		ev := m.events[m.idx]
		m.idx++
		return ev, nil
	}
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, nil
}

func (m *mockStream) Close() error {
	m.closed = true
	return nil
}

type mockSource struct {
	balances  []*cex.AccountBalance
	stream    *mockStream
	accErr    error
	streamErr error
}

func (m *mockSource) GetAccount(ctx context.Context) ([]*cex.AccountBalance, error) {
	return m.balances, m.accErr
}

func (m *mockSource) SubscribeAccount(ctx context.Context) (cex.AccountStream, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.stream, nil
}

type mockStore struct {
	fills  []*cex.ExecutionReport
	assets []*cex.AccountBalance
	err    error
}

func (m *mockStore) SaveFill(ctx context.Context, report *cex.ExecutionReport) error {
	if m.err != nil {
		return m.err
	}
	m.fills = append(m.fills, report)
	return nil
}

func (m *mockStore) SaveAssets(ctx context.Context, at time.Time, balances []*cex.AccountBalance) error {
	if m.err != nil {
		return m.err
	}
	m.assets = append(m.assets, balances...)
	return nil
}

type mockNotifier struct {
	alerts []string
}

func (m *mockNotifier) Alert(ctx context.Context, subject, message string) error {
	m.alerts = append(m.alerts, message)
	return nil
}

func balance(asset, free string) *cex.AccountBalance {
	return &cex.AccountBalance{Asset: asset, Free: decimal.RequireFromString(free)}
}

func execution(execType, status string) *cex.AccountEvent {
	return &cex.AccountEvent{
		Type: cex.AccountEventExecution,
		Execution: &cex.ExecutionReport{
			Symbol:          "BTCUSDT",
			Side:            cex.OrderSideBuy,
			ExecutionType:   execType,
			Status:          status,
			FilledQuantity:  decimal.RequireFromString("0.005"),
			FilledQuote:     decimal.RequireFromString("210"),
			TransactionTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func balanceEvent(balances ...*cex.AccountBalance) *cex.AccountEvent {
	return &cex.AccountEvent{
		Type:      cex.AccountEventBalance,
		EventTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Balances:  balances,
	}
}

var defaultConfig = Config{AlertRatio: 0.95, WatchedAssets: []string{"BTC", "USDT"}}

func TestNew_Validation(t *testing.T) {
	_, err := New(&mockSource{}, &mockStore{}, nil, Config{AlertRatio: 0})
	assert.Error(t, err)
	_, err = New(&mockSource{}, &mockStore{}, nil, Config{AlertRatio: 1.5})
	assert.Error(t, err)
}

func TestCollector_Run(t *testing.T) {
	stream := &mockStream{events: []*cex.AccountEvent{
		execution("NEW", "NEW"),
		execution("TRADE", "PARTIALLY_FILLED"),
		execution("TRADE", "FILLED"),
		balanceEvent(balance("BTC", "0.99"), balance("USDT", "1000")),
		balanceEvent(balance("BTC", "0.90")),
		balanceEvent(balance("BTC", "0.80")),
	}}
	source := &mockSource{
		balances: []*cex.AccountBalance{balance("BTC", "1"), balance("USDT", "1000"), balance("BNB", "3")},
		stream:   stream,
	}
	store := &mockStore{}
	notifier := &mockNotifier{}

	c, err := New(source, store, notifier, defaultConfig)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, store.fills, 1)
	assert.Equal(t, "FILLED", store.fills[0].Status)
	assert.Len(t, store.assets, 4)

	// BTC 跌破 0.95 只告警一次
	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "BTC free balance 0.9")

	stats := c.Stats()
	assert.Equal(t, 6, stats.Events)
	assert.Equal(t, 1, stats.Fills)
	assert.Equal(t, 1, stats.Alerts)
	assert.True(t, stream.closed)
}

func TestCollector_SessionBudget(t *testing.T) {
	stream := &mockStream{events: []*cex.AccountEvent{execution("TRADE", "FILLED")}, block: true}
	source := &mockSource{stream: stream}
	store := &mockStore{}

	cfg := defaultConfig
	cfg.Budget = 20 * time.Millisecond
	c, err := New(source, store, nil, cfg)
	require.NoError(t, err)

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, store.fills, 1)
	assert.True(t, stream.closed)
}

func TestCollector_ParentCancel(t *testing.T) {
	source := &mockSource{stream: &mockStream{block: true}}
	c, err := New(source, &mockStore{}, nil, defaultConfig)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollector_Errors(t *testing.T) {
	t.Run("initial balances", func(t *testing.T) {
		c, err := New(&mockSource{accErr: testError}, &mockStore{}, nil, defaultConfig)
		require.NoError(t, err)
		assert.ErrorIs(t, c.Run(context.Background()), testError)
	})

	t.Run("subscribe", func(t *testing.T) {
		c, err := New(&mockSource{streamErr: testError}, &mockStore{}, nil, defaultConfig)
		require.NoError(t, err)
		assert.ErrorIs(t, c.Run(context.Background()), testError)
	})

	t.Run("store failure does not stop the session", func(t *testing.T) {
		stream := &mockStream{events: []*cex.AccountEvent{execution("TRADE", "FILLED"), balanceEvent(balance("BTC", "1"))}}
		c, err := New(&mockSource{stream: stream}, &mockStore{err: testError}, nil, defaultConfig)
		require.NoError(t, err)

		require.NoError(t, c.Run(context.Background()))
		assert.Equal(t, 2, c.Stats().Dropped)
	})
}
