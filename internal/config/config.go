// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// Единственный привилегированный пользователь. Ролей нет:
	// либо админ, либо нет.
	AdminID int64 `envconfig:"ADMIN_ID" required:"true"`
	// ID двух партнёрских групп, членство в которых даёт бонус
	Group1ChatID int64 `envconfig:"GROUP1_CHAT_ID" required:"true"`
	Group2ChatID int64 `envconfig:"GROUP2_CHAT_ID" required:"true"`
	// Публичные ссылки-приглашения в эти группы
	Group1URL string `envconfig:"GROUP1_URL" default:"https://t.me/looteverythingfast"`
	Group2URL string `envconfig:"GROUP2_URL" default:"https://t.me/looteverythingfast2"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"reward_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Rewards (всё в пайсах: 100 пайс = ₹1) ---
	// Диапазон случайной награды за просмотр рекламы, границы включительно
	AdRewardMinPaise int64 `envconfig:"AD_REWARD_MIN_PAISE" default:"300"`
	AdRewardMaxPaise int64 `envconfig:"AD_REWARD_MAX_PAISE" default:"500"`
	// Полный бонус за вступление в обе группы
	BonusFullPaise int64 `envconfig:"BONUS_FULL_PAISE" default:"5000"`
	// Частичный бонус за одну группу из двух
	BonusPartialPaise int64 `envconfig:"BONUS_PARTIAL_PAISE" default:"2500"`
	// Штраф за выход из группы после получения бонуса
	PenaltyPaise int64 `envconfig:"PENALTY_PAISE" default:"6000"`
	// Минимальный интервал между полными бонусами
	BonusCooldown time.Duration `envconfig:"BONUS_COOLDOWN" default:"24h"`
	// Политика при нечитаемом last_bonus_at: false — считаем кулдаун
	// истёкшим (историческое поведение), true — отказываем в бонусе.
	BonusCorruptFailClosed bool `envconfig:"BONUS_CORRUPT_FAIL_CLOSED" default:"false"`

	// --- Ad server ---
	// Публичный адрес, на который Mini App открывает страницы рекламы
	Domain   string `envconfig:"DOMAIN" default:"http://localhost:10000"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"10000"`
	// Каталог рекламы: yaml-файл со списком {video_url, group_url}
	AdsFile string `envconfig:"ADS_FILE" default:"ads.yaml"`
	// Сколько живёт токен просмотра до использования
	AdTokenTTL time.Duration `envconfig:"AD_TOKEN_TTL" default:"15m"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Jobs ---
	// Ежечасная переповерка членства держателей бонуса
	FeatureMembershipAudit bool `envconfig:"FEATURE_MEMBERSHIP_AUDIT" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.AdminID == 0 {
		return fmt.Errorf("ADMIN_ID не задан или равен 0")
	}
	if c.Group1ChatID == 0 || c.Group2ChatID == 0 {
		return fmt.Errorf("GROUP1_CHAT_ID/GROUP2_CHAT_ID не заданы")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if c.AdRewardMinPaise <= 0 || c.AdRewardMaxPaise < c.AdRewardMinPaise {
		return fmt.Errorf("некорректный диапазон AD_REWARD_MIN_PAISE/AD_REWARD_MAX_PAISE")
	}
	if c.BonusFullPaise <= 0 || c.BonusPartialPaise <= 0 || c.PenaltyPaise <= 0 {
		return fmt.Errorf("суммы бонусов и штрафа должны быть > 0")
	}
	if c.BonusCooldown <= 0 {
		return fmt.Errorf("BONUS_COOLDOWN должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
