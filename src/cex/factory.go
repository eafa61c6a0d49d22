package cex

import (
	"fmt"
	"sort"
)

// Options 创建交易所客户端的参数
type Options struct {
	APIKey       string
	SecretKey    string
	DataBaseURL  string // 行情接口地址
	OrderBaseURL string // 下单接口地址，测试网与行情地址不同
	Testnet      bool
}

// CEXFactory CEX工厂接口
type CEXFactory interface {
	CreateClient(opts Options) (CEXClient, error)
}

// CEXFactoryRegistry CEX工厂注册表
var CEXFactoryRegistry = make(map[string]CEXFactory)

// RegisterCEXFactory 注册CEX工厂
func RegisterCEXFactory(name string, factory CEXFactory) {
	CEXFactoryRegistry[name] = factory
}

// CreateCEXClient 创建CEX客户端
func CreateCEXClient(cexName string, opts Options) (CEXClient, error) {
	factory, exists := CEXFactoryRegistry[cexName]
	if !exists {
		return nil, fmt.Errorf("unsupported CEX: %s", cexName)
	}
	return factory.CreateClient(opts)
}

// GetSupportedCEXes 获取支持的CEX列表
func GetSupportedCEXes() []string {
	var cexes []string
	for name := range CEXFactoryRegistry {
		cexes = append(cexes, name)
	}
	sort.Strings(cexes)
	return cexes
}
