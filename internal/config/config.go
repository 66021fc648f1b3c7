// Package config loads application settings from defaults, an optional
// .env file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Model  ModelConfig  `mapstructure:"model"`
	Upload UploadConfig `mapstructure:"upload"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Environment  string        `mapstructure:"environment"`
	CORSOrigins  string        `mapstructure:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type ModelConfig struct {
	Path         string `mapstructure:"path"`
	MetadataPath string `mapstructure:"metadata_path"`
	RuntimeLib   string `mapstructure:"runtime_lib"`
}

type UploadConfig struct {
	Dir          string `mapstructure:"dir"`
	KeepFiles    bool   `mapstructure:"keep_files"`
	MaxBytes     int64  `mapstructure:"max_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
}

// env names for every key; PORT stays unprefixed so PaaS hosts can set it.
var envBindings = map[string]string{
	"server.port":          "PORT",
	"server.environment":   "ENVIRONMENT",
	"server.cors_origins":  "CORS_ORIGINS",
	"server.read_timeout":  "SERVER_READ_TIMEOUT",
	"server.write_timeout": "SERVER_WRITE_TIMEOUT",
	"server.idle_timeout":  "SERVER_IDLE_TIMEOUT",
	"model.path":           "MODEL_PATH",
	"model.metadata_path":  "MODEL_METADATA_PATH",
	"model.runtime_lib":    "ONNXRUNTIME_LIB",
	"upload.dir":           "UPLOAD_DIR",
	"upload.keep_files":    "UPLOAD_KEEP_FILES",
	"upload.max_bytes":     "UPLOAD_MAX_BYTES",
	"upload.max_dimension": "UPLOAD_MAX_DIMENSION",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "prod")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("model.path", "./models/mnist.onnx")
	v.SetDefault("model.metadata_path", "./models/model_metadata.json")
	v.SetDefault("model.runtime_lib", "")

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.keep_files", false)
	v.SetDefault("upload.max_bytes", int64(10<<20))
	v.SetDefault("upload.max_dimension", 4096)
}

// Load reads .env if present, then resolves every key from the
// environment over the defaults.
func Load() (*Config, error) {
	// a missing .env is normal in production
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func (c *Config) IsDev() bool {
	return c.Server.Environment == "dev"
}

// Origins splits the comma-separated CORS_ORIGINS value.
func (c *Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.Server.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
