package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MonitorAddress string `mapstructure:"monitor_address"`
}

// GameConfig 游戏参数
type GameConfig struct {
	EntryFee        int64         `mapstructure:"entry_fee"`
	PlayersPerMatch int           `mapstructure:"players_per_match"`
	TopLevel        int           `mapstructure:"top_level"`
	StartDelay      time.Duration `mapstructure:"start_delay"`
	BribeBonus      float64       `mapstructure:"bribe_bonus"`
	RoomIdleTimeout time.Duration `mapstructure:"room_idle_timeout"`
	FinishedLinger  time.Duration `mapstructure:"finished_linger"`
	AllowReveal     bool          `mapstructure:"allow_reveal"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

func setDefaults() {
	viper.SetDefault("server.http_address", ":4000")
	viper.SetDefault("server.rpc_address", ":4001")
	viper.SetDefault("server.monitor_address", ":9100")

	// 与链上合约约定的入场费：1 GORBA，三人局
	viper.SetDefault("game.entry_fee", 1)
	viper.SetDefault("game.players_per_match", 3)
	viper.SetDefault("game.top_level", 10)
	viper.SetDefault("game.start_delay", 2*time.Second)
	viper.SetDefault("game.bribe_bonus", 0.10)
	viper.SetDefault("game.room_idle_timeout", 30*time.Minute)
	viper.SetDefault("game.finished_linger", 5*time.Minute)
	viper.SetDefault("game.allow_reveal", false)

	viper.SetDefault("database.enabled", true)
}
