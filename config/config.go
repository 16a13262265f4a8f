package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Email     EmailConfig     `mapstructure:"email"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
}

type JWTConfig struct {
	SecretKey      string        `mapstructure:"secretKey"`
	Issuer         string        `mapstructure:"issuer"`
	Audience       string        `mapstructure:"audience"`
	AccessTokenTTL time.Duration `mapstructure:"accessTokenTTL"`
}

type QueueConfig struct {
	URL            string        `mapstructure:"url"`
	PrefetchCount  int           `mapstructure:"prefetchCount"`
	Consumers      int           `mapstructure:"consumers"`
	PublishTimeout time.Duration `mapstructure:"publishTimeout"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AssetsConfig struct {
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	BaseEndpoint string `mapstructure:"baseEndpoint"`
	AccessKey    string `mapstructure:"accessKey"`
	SecretKey    string `mapstructure:"secretKey"`
}

type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets always come from the environment, never from the file
	v.SetEnvPrefix("REG")
	v.AutomaticEnv()
	_ = v.BindEnv("jwt.secretKey", "REG_JWT_SECRET")
	_ = v.BindEnv("repositories.postgres.password", "REG_POSTGRES_PASSWORD")
	_ = v.BindEnv("queue.url", "REG_AMQP_URL")
	_ = v.BindEnv("email.password", "REG_SMTP_PASSWORD")
	_ = v.BindEnv("assets.accessKey", "REG_S3_ACCESS_KEY")
	_ = v.BindEnv("assets.secretKey", "REG_S3_SECRET_KEY")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	return config, nil
}
