package database

import "fmt"

// DatabaseConfig 数据库配置，Host 为空时不启用持久化
type DatabaseConfig struct {
	Host         string `json:"host"`           // 数据库主机地址
	Port         string `json:"port"`           // 数据库端口
	User         string `json:"user"`           // 数据库用户名
	Password     string `json:"password"`       // 数据库密码
	DBName       string `json:"dbname"`         // 数据库名称
	SSLMode      string `json:"sslmode"`        // SSL模式
	MaxOpenConns int    `json:"max_open_conns"` // 最大连接数
	MaxIdleConns int    `json:"max_idle_conns"` // 最大空闲连接数
}

// GetDefaultDatabaseConfig 默认数据库配置
func GetDefaultDatabaseConfig(dbname string) DatabaseConfig {
	return DatabaseConfig{
		Host:         "",
		Port:         "5432",
		User:         "breakoutbot",
		Password:     "",
		DBName:       dbname,
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}
}

// Enabled 是否配置了数据库
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN lib/pq 连接串
func (c DatabaseConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslmode)
}
