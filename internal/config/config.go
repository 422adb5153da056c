package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	RedisURL string // 空ならメモリ上のセッション
	AMQPURL  string // 空ならイベント送信しない

	JWTSecret string // JWT署名シークレット

	GoEnv        string // dev/prod
	APIDomain    string // APIドメイン（cookieやCORSなどで使う）
	FEURL        string // フロントURL（CORSなどで使う）
	CookieSecure bool

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration // カート/チェックアウトの保持期間

	Storage StorageConfig
}

// 画像の保存先
type StorageConfig struct {
	Driver         string `yaml:"driver"` // local / minio
	LocalDir       string `yaml:"local_dir"`
	PublicBaseURL  string `yaml:"public_base_url"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"-"`
	SecretKey      string `yaml:"-"`
	UseSSL         bool   `yaml:"use_ssl"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// CONFIG_FILE のyaml（秘密情報は入れない）
type fileConfig struct {
	Port         string        `yaml:"port"`
	GoEnv        string        `yaml:"go_env"`
	APIDomain    string        `yaml:"api_domain"`
	FEURL        string        `yaml:"fe_url"`
	CookieSecure *bool         `yaml:"cookie_secure"`
	AccessTTL    string        `yaml:"access_ttl"`
	RefreshTTL   string        `yaml:"refresh_ttl"`
	SessionTTL   string        `yaml:"session_ttl"`
	Storage      StorageConfig `yaml:"storage"`
}

func defaults() Config {
	return Config{
		Port:            "8080",
		PostgresPort:    5432,
		PostgresSSLMode: "disable",
		GoEnv:           "dev",
		FEURL:           "http://localhost:5173",
		CookieSecure:    true,
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      14 * 24 * time.Hour,
		SessionTTL:      7 * 24 * time.Hour,
		Storage: StorageConfig{
			Driver:         "local",
			LocalDir:       "./uploads",
			PublicBaseURL:  "http://localhost:8080/media",
			MaxUploadBytes: 10 << 20,
		},
	}
}

// Loadは .env → CONFIG_FILE → 環境変数 の順で上書きする
func Load() (Config, error) {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Port, fc.Port)
	setString(&cfg.GoEnv, fc.GoEnv)
	setString(&cfg.APIDomain, fc.APIDomain)
	setString(&cfg.FEURL, fc.FEURL)
	if fc.CookieSecure != nil {
		cfg.CookieSecure = *fc.CookieSecure
	}

	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"access_ttl", fc.AccessTTL, &cfg.AccessTTL},
		{"refresh_ttl", fc.RefreshTTL, &cfg.RefreshTTL},
		{"session_ttl", fc.SessionTTL, &cfg.SessionTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s must be duration: %w", d.key, err)
		}
		*d.dst = v
	}

	setString(&cfg.Storage.Driver, fc.Storage.Driver)
	setString(&cfg.Storage.LocalDir, fc.Storage.LocalDir)
	setString(&cfg.Storage.PublicBaseURL, fc.Storage.PublicBaseURL)
	setString(&cfg.Storage.Endpoint, fc.Storage.Endpoint)
	if fc.Storage.UseSSL {
		cfg.Storage.UseSSL = true
	}
	if fc.Storage.MaxUploadBytes > 0 {
		cfg.Storage.MaxUploadBytes = fc.Storage.MaxUploadBytes
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, os.Getenv("PORT"))

	setString(&cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&cfg.PostgresUser, os.Getenv("POSTGRES_USER"))
	setString(&cfg.PostgresPassword, os.Getenv("POSTGRES_PASSWORD"))
	setString(&cfg.PostgresDB, os.Getenv("POSTGRES_DB"))
	setString(&cfg.PostgresHost, os.Getenv("POSTGRES_HOST"))
	setString(&cfg.PostgresSSLMode, os.Getenv("POSTGRES_SSLMODE"))
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POSTGRES_PORT must be number: %w", err)
		}
		cfg.PostgresPort = p
	}

	setString(&cfg.RedisURL, os.Getenv("REDIS_URL"))
	setString(&cfg.AMQPURL, os.Getenv("AMQP_URL"))
	setString(&cfg.JWTSecret, os.Getenv("JWT_SECRET"))

	setString(&cfg.GoEnv, os.Getenv("GO_ENV"))
	setString(&cfg.APIDomain, os.Getenv("API_DOMAIN"))
	setString(&cfg.FEURL, os.Getenv("FE_URL"))
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE must be bool: %w", err)
		}
		cfg.CookieSecure = b
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL must be duration: %w", err)
		}
		cfg.SessionTTL = d
	}

	setString(&cfg.Storage.Driver, os.Getenv("STORAGE_DRIVER"))
	setString(&cfg.Storage.LocalDir, os.Getenv("STORAGE_LOCAL_DIR"))
	setString(&cfg.Storage.PublicBaseURL, os.Getenv("STORAGE_PUBLIC_BASE_URL"))
	setString(&cfg.Storage.Endpoint, os.Getenv("MINIO_ENDPOINT"))
	setString(&cfg.Storage.AccessKey, os.Getenv("MINIO_ACCESS_KEY"))
	setString(&cfg.Storage.SecretKey, os.Getenv("MINIO_SECRET_KEY"))
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MINIO_USE_SSL must be bool: %w", err)
		}
		cfg.Storage.UseSSL = b
	}
	return nil
}

// 必須チェック
func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or minio")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// postgres接続文字列（gorm / migrate共通）
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
