package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Limits  Limits  `mapstructure:"limits"`
	Tools   Tools   `mapstructure:"tools"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	Port              string        `mapstructure:"port"` // HTTP port to listen on
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for Port.
func (s Server) Addr() string {
	return ":" + s.Port
}

// Storage holds configuration for the temp file roots and their sweeper.
type Storage struct {
	BaseDir       string        `mapstructure:"base_dir"`       // parent of uploads/ and processed/
	Retention     time.Duration `mapstructure:"retention"`      // age after which files are swept
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // time between sweeps
}

// Limits holds upload and decode size caps in bytes.
type Limits struct {
	MaxImageBytes   int64 `mapstructure:"max_image_bytes"`
	MaxPDFBytes     int64 `mapstructure:"max_pdf_bytes"`
	MaxBodyBytes    int64 `mapstructure:"max_body_bytes"`
	MaxDecodedBytes int64 `mapstructure:"max_decoded_bytes"`
}

// Tools holds the names or paths of the external binaries.
type Tools struct {
	Ghostscript []string      `mapstructure:"ghostscript"` // candidates in priority order
	HEIFEnc     string        `mapstructure:"heif_enc"`
	HEIFDec     string        `mapstructure:"heif_dec"`
	PDFTimeout  time.Duration `mapstructure:"pdf_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 330*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("storage.base_dir", "/tmp/compressor")
	v.SetDefault("storage.retention", 10*time.Minute)
	v.SetDefault("storage.sweep_interval", 10*time.Minute)

	v.SetDefault("limits.max_image_bytes", 50<<20)
	v.SetDefault("limits.max_pdf_bytes", 50<<20)
	v.SetDefault("limits.max_body_bytes", 100<<20)
	v.SetDefault("limits.max_decoded_bytes", 512<<20)

	v.SetDefault("tools.ghostscript", []string{"gs", "gswin64c", "gswin32c"})
	v.SetDefault("tools.heif_enc", "heif-enc")
	v.SetDefault("tools.heif_dec", "heif-dec")
	v.SetDefault("tools.pdf_timeout", 300*time.Second)
}

// bindEnv binds the environment variables that override config keys.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"server.port":       "PORT",
		"storage.base_dir":  "TEMP_DIR",
		"tools.ghostscript": "GHOSTSCRIPT_PATH",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}

	return nil
}

// Load reads the configuration. A .env file in the working directory is
// loaded into the environment first. path names a config file; when empty
// ./config/config.yml is used if it exists, and defaults apply otherwise.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		zlog.Logger.Info().Msg("loaded .env")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load that panics on failure.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
