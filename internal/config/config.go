package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	CONFIG_TON_TESTNET_URL string = "https://ton-blockchain.github.io/testnet-global.config.json"
	CONFIG_TON_MAINNET_URL string = "https://ton.org/global.config.json"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)

var log = InitLogger()

type Config struct {
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	BoltPath    string `envconfig:"BOLT_PATH" default:"yieldpool.db"`

	Postgres PostgresConfig

	RedisURL           string `envconfig:"REDIS_URL"`
	RedisEventsChannel string `envconfig:"REDIS_EVENTS_CHANNEL" default:"yieldpool:events"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatId   int64  `envconfig:"TELEGRAM_CHAT_ID"`

	TonConfigURL      string `envconfig:"TON_CONFIG_URL" default:"https://ton.org/global.config.json"`
	TonEntropyEnabled bool   `envconfig:"TON_ENTROPY_ENABLED" default:"false"`

	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	AdminToken  string `envconfig:"ADMIN_TOKEN"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	Ledger LedgerConfig

	CronCompletePools string `envconfig:"CRON_COMPLETE_POOLS" default:"* * * * *"`
	CronMonthlyDraw   string `envconfig:"CRON_MONTHLY_DRAW" default:"0 * * * *"`
	CronSafetySweep   string `envconfig:"CRON_SAFETY_SWEEP" default:"30 * * * *"`
	AutoSafetyRefund  bool   `envconfig:"AUTO_SAFETY_REFUND" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"yieldpool"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// LedgerConfig holds the ledger constants. Amounts are decimal token strings.
type LedgerConfig struct {
	DepositToken           string        `envconfig:"DEPOSIT_TOKEN" default:"PULSE"`
	SafetyGracePeriod      time.Duration `envconfig:"SAFETY_GRACE_PERIOD" default:"24h"`
	LotteryBurnShareBps    int64         `envconfig:"LOTTERY_BURN_SHARE_BPS" default:"5000"`
	LotteryInstantShareBps int64         `envconfig:"LOTTERY_INSTANT_SHARE_BPS" default:"5000"`
	LotteryDrawInterval    time.Duration `envconfig:"LOTTERY_DRAW_INTERVAL" default:"720h"`
	LotteryWinnersHistory  int           `envconfig:"LOTTERY_WINNERS_HISTORY" default:"10"`
	PremiumToken           string        `envconfig:"PREMIUM_TOKEN" default:"PULSE"`
	PremiumMinBalance      string        `envconfig:"PREMIUM_MIN_BALANCE" default:"1000"`
	MinCreationFee         string        `envconfig:"MIN_CREATION_FEE" default:"1"`
}

// DSN is the lib/pq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&client_encoding=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
		"UTF8",
	)
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME must be set for the postgres store")
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH must be set for the bolt store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TelegramBotToken != "" && c.TelegramChatId == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID must be set when TELEGRAM_BOT_TOKEN is set")
	}
	if c.Ledger.LotteryBurnShareBps < 0 || c.Ledger.LotteryBurnShareBps > 10000 {
		return fmt.Errorf("LOTTERY_BURN_SHARE_BPS must be within [0, 10000]")
	}
	if c.Ledger.LotteryInstantShareBps < 0 || c.Ledger.LotteryInstantShareBps > 10000 {
		return fmt.Errorf("LOTTERY_INSTANT_SHARE_BPS must be within [0, 10000]")
	}
	if c.Ledger.LotteryDrawInterval <= 0 {
		return fmt.Errorf("LOTTERY_DRAW_INTERVAL must be positive")
	}
	if c.Ledger.SafetyGracePeriod < 0 {
		return fmt.Errorf("SAFETY_GRACE_PERIOD must not be negative")
	}
	return nil
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: ", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
