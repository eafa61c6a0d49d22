package cmd

// RegisterAllTradingCommands 注册所有交易相关命令
func RegisterAllTradingCommands() {
	RegisterBacktestCmd()
	RegisterSweepCmd()
	RegisterLiveCmd()
	RegisterCollectCmd()
	RegisterFetchCmd()
	RegisterReportCmd()
	RegisterPingCmd()
}
