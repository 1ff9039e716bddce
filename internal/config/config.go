package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
	Closer   CloserConfig   `mapstructure:"closer"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Issuer   string        `mapstructure:"issuer"`
}

type UploadsConfig struct {
	Dir          string `mapstructure:"dir"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
}

type CloserConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/auction_market?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.secret", "mysecrettoken")
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("auth.issuer", "auction-market")
	viper.SetDefault("uploads.dir", "uploads")
	viper.SetDefault("uploads.max_size_bytes", int64(5*1024*1024))
	viper.SetDefault("closer.interval", time.Minute)
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "auction-server-1")

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/auction-market/")

	// Environment variable support
	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	viper.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	viper.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("auth.secret", "JWT_SECRET")
	viper.BindEnv("auth.token_ttl", "JWT_TOKEN_TTL")
	viper.BindEnv("auth.issuer", "JWT_ISSUER")
	viper.BindEnv("uploads.dir", "UPLOADS_DIR")
	viper.BindEnv("uploads.max_size_bytes", "UPLOADS_MAX_SIZE_BYTES")
	viper.BindEnv("closer.interval", "CLOSER_INTERVAL")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
