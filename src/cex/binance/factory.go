package binance

import (
	"breakoutbot/src/cex"
)

// BinanceFactory Binance工厂实现
type BinanceFactory struct{}

// CreateClient 创建Binance客户端
func (f *BinanceFactory) CreateClient(opts cex.Options) (cex.CEXClient, error) {
	return NewClient(opts), nil
}

// 注册Binance工厂
func init() {
	cex.RegisterCEXFactory("binance", &BinanceFactory{})
}
