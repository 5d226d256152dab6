package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Rcon          RconConfig
	Fulfillment   FulfillmentConfig
	Transfers     TransfersConfig
	Cron          CronConfig
	Telegram      TelegramConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Rcon.Servers(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAFTVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRAFTVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTVAULT_DB_DSN"`
	Driver string `envconfig:"CRAFTVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CRAFTVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"CRAFTVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CRAFTVAULT_DB_USER"`
	LegacyPassword string `envconfig:"CRAFTVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"CRAFTVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"CRAFTVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CRAFTVAULT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CRAFTVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CRAFTVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CRAFTVAULT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CRAFTVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CRAFTVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CRAFTVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CRAFTVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CRAFTVAULT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginNickLimit    int           `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_LOGIN_NICK_LIMIT" default:"5"`
	LoginIPLimit      int           `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow    time.Duration `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterNickLimit int           `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_REGISTER_NICK_LIMIT" default:"3"`
	RegisterIPLimit   int           `envconfig:"CRAFTVAULT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RconServer is one game server reachable over the RCON protocol.
type RconServer struct {
	ID       string
	Address  string
	Password string
}

type RconConfig struct {
	// ServerList holds comma-separated entries of the form
	// id=host:port:password. Example:
	//   survival=mc1.internal:25575:secret,creative=mc2.internal:25575:secret
	ServerList   string        `envconfig:"CRAFTVAULT_RCON_SERVERS"`
	DialTimeout  time.Duration `envconfig:"CRAFTVAULT_RCON_DIAL_TIMEOUT" default:"10s"`
	ExecTimeout  time.Duration `envconfig:"CRAFTVAULT_RCON_EXEC_TIMEOUT" default:"10s"`
	MaxAttempts  int           `envconfig:"CRAFTVAULT_RCON_MAX_ATTEMPTS" default:"3"`
	RetryBackoff time.Duration `envconfig:"CRAFTVAULT_RCON_RETRY_BACKOFF" default:"5s"`
}

// Servers parses ServerList into structured entries.
func (r RconConfig) Servers() ([]RconServer, error) {
	raw := strings.TrimSpace(r.ServerList)
	if raw == "" {
		return nil, nil
	}

	var servers []RconServer
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, spec, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rcon server entry %q (want id=host:port:password)", entry)
		}
		id = strings.TrimSpace(id)
		parts := strings.SplitN(spec, ":", 3)
		if id == "" || len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid rcon server entry %q (want id=host:port:password)", entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate rcon server id %q", id)
		}
		seen[id] = true
		servers = append(servers, RconServer{
			ID:       id,
			Address:  parts[0] + ":" + parts[1],
			Password: parts[2],
		})
	}
	return servers, nil
}

type FulfillmentConfig struct {
	CommandDelay      time.Duration `envconfig:"CRAFTVAULT_FULFILLMENT_COMMAND_DELAY" default:"300ms"`
	DefaultMaxRetries int           `envconfig:"CRAFTVAULT_FULFILLMENT_MAX_RETRIES" default:"3"`
}

type TransfersConfig struct {
	CommissionPercent int `envconfig:"CRAFTVAULT_TRANSFER_COMMISSION_PERCENT" default:"15"`
	MinAmount         int `envconfig:"CRAFTVAULT_TRANSFER_MIN_AMOUNT" default:"10"`
}

type CronConfig struct {
	SweepInterval   time.Duration `envconfig:"CRAFTVAULT_CRON_SWEEP_INTERVAL" default:"2m"`
	SweepBatchSize  int           `envconfig:"CRAFTVAULT_CRON_SWEEP_BATCH_SIZE" default:"10"`
	RewardsInterval time.Duration `envconfig:"CRAFTVAULT_CRON_REWARDS_INTERVAL" default:"24h"`
}

type TelegramConfig struct {
	BotToken     string `envconfig:"CRAFTVAULT_TELEGRAM_BOT_TOKEN"`
	ReportChatID int64  `envconfig:"CRAFTVAULT_TELEGRAM_REPORT_CHAT_ID"`
}

// Enabled reports whether reward reports should be pushed to Telegram.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ReportChatID != 0
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CRAFTVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CRAFTVAULT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
