package core

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/insightslm/insightslm/pkg/config"
	"github.com/insightslm/insightslm/pkg/sqlstore"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf, err := ParseConfig(raw)
	if err != nil {
		panic(err)
	}
	return conf
}

func ParseConfig(raw []byte) (CoreConfig, error) {
	conf := CoreConfig{}
	conf.SetConfigBytes(raw)
	if err := toml.Unmarshal(raw, &conf); err != nil {
		return CoreConfig{}, err
	}
	conf.applyDefaults()
	return conf, nil
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	return toml.Unmarshal(c.bytes, cfg)
}

type CustomConfig[T any] struct {
	CustomConfig T `toml:"custom_config"`
}

func NewCustomConfigPayload[T any]() CustomConfig[T] {
	return CustomConfig[T]{}
}

// LoadBaseConfigFromENV 先加载工作目录下的 .env，再读取环境变量
func LoadBaseConfigFromENV() CoreConfig {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env", slog.String("error", err.Error()))
	}
	var c CoreConfig
	c.FromENV()
	c.applyDefaults()
	return c
}

type CoreConfig struct {
	Addr          string              `toml:"addr"`
	Log           Log                 `toml:"log"`
	Postgres      PGConfig            `toml:"postgres"`
	Redis         RedisConfig         `toml:"redis"`
	Site          Site                `toml:"site"`
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`
	Auth          AuthConfig          `toml:"auth"`
	Webhook       WebhookConfig       `toml:"webhook"`
	OpenAI        OpenAIConfig        `toml:"openai"`
	Ingest        IngestConfig        `toml:"ingest"`
	Audio         AudioConfig         `toml:"audio"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

func (c *CoreConfig) FromENV() {
	c.Addr = config.String("", "INSIGHTS_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.Site.FromENV()
	c.ObjectStorage.FromENV()
	c.Auth.FromENV()
	c.Webhook.FromENV()
	c.OpenAI.FromENV()
	c.Ingest.FromENV()
	c.Audio.FromENV()
}

func (c *CoreConfig) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":33033"
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = Duration(5 * time.Minute)
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Ingest.StaggerMS == 0 {
		c.Ingest.StaggerMS = 150
	}
	if c.Ingest.MaxFileSizeMB == 0 {
		c.Ingest.MaxFileSizeMB = 50
	}
	if c.Audio.URLTTLHours == 0 {
		c.Audio.URLTTLHours = 24
	}
	if c.Audio.RefreshWindowMinutes == 0 {
		c.Audio.RefreshWindowMinutes = 60
	}
	if c.Audio.MaxConcurrentGenerations == 0 {
		c.Audio.MaxConcurrentGenerations = 5
	}
	if c.Audio.GenerationTimeout == 0 {
		c.Audio.GenerationTimeout = Duration(30 * time.Minute)
	}
}

// Duration toml 中以 "5m" 形式书写的时长
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type ObjectStorageDriver struct {
	StaticDomain string       `toml:"static_domain"`
	Driver       string       `toml:"driver"`
	S3           *S3Config    `toml:"s3"`
	Local        *LocalConfig `toml:"local"`
}

func (o *ObjectStorageDriver) FromENV() {
	o.Driver = config.String("none", "INSIGHTS_OBJECT_STORAGE_DRIVER")
	o.StaticDomain = config.String("", "INSIGHTS_OBJECT_STORAGE_STATIC_DOMAIN")
	switch strings.ToLower(o.Driver) {
	case "s3":
		o.S3 = &S3Config{
			Bucket:       config.String("", "INSIGHTS_S3_BUCKET"),
			Region:       config.String("us-east-1", "INSIGHTS_S3_REGION"),
			Endpoint:     config.String("", "INSIGHTS_S3_ENDPOINT"),
			AccessKey:    config.String("", "INSIGHTS_S3_ACCESS_KEY"),
			SecretKey:    config.String("", "INSIGHTS_S3_SECRET_KEY"),
			UsePathStyle: config.Bool(false, "INSIGHTS_S3_USE_PATH_STYLE"),
		}
	case "local":
		o.Local = &LocalConfig{
			Root: config.String("./data", "INSIGHTS_LOCAL_STORAGE_ROOT"),
		}
	}
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

type LocalConfig struct {
	Root string `toml:"root"`
}

type Site struct {
	// PublicBaseURL 外部服务回调本服务时使用的地址
	PublicBaseURL string `toml:"public_base_url"`
}

func (s *Site) FromENV() {
	s.PublicBaseURL = strings.TrimRight(config.String("", "INSIGHTS_PUBLIC_BASE_URL", "SUPABASE_URL"), "/")
}

// CallbackURL /functions/v1/{name} 的完整地址
func (s Site) CallbackURL(name string) string {
	return strings.TrimRight(s.PublicBaseURL, "/") + "/functions/v1/" + name
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

func (a *AuthConfig) FromENV() {
	a.JWTSecret = config.String("", "INSIGHTS_JWT_SECRET", "SUPABASE_JWT_SECRET")
}

type WebhookConfig struct {
	Auth                  string   `toml:"auth"`
	NotebookGenerationURL string   `toml:"notebook_generation_url"`
	AdditionalSourcesURL  string   `toml:"additional_sources_url"`
	AudioGenerationURL    string   `toml:"audio_generation_url"`
	DocumentProcessingURL string   `toml:"document_processing_url"`
	Timeout               Duration `toml:"timeout"`
}

func (w *WebhookConfig) FromENV() {
	w.Auth = config.String("", "NOTEBOOK_GENERATION_AUTH")
	w.NotebookGenerationURL = config.String("", "NOTEBOOK_GENERATION_URL")
	w.AdditionalSourcesURL = config.String("", "ADDITIONAL_SOURCES_WEBHOOK_URL")
	w.AudioGenerationURL = config.String("", "AUDIO_GENERATION_WEBHOOK_URL")
	w.DocumentProcessingURL = config.String("", "DOCUMENT_PROCESSING_WEBHOOK_URL")
	w.Timeout = Duration(config.Duration(0, "INSIGHTS_WEBHOOK_TIMEOUT"))
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

func (o *OpenAIConfig) FromENV() {
	o.APIKey = config.String("", "OPENAI_API_KEY")
	o.BaseURL = config.String("", "OPENAI_BASE_URL")
	o.Model = config.String("", "INSIGHTS_OPENAI_MODEL")
}

type IngestConfig struct {
	StaggerMS     int `toml:"stagger_ms"`
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

func (i *IngestConfig) FromENV() {
	i.StaggerMS = config.Int(0, "INSIGHTS_INGEST_STAGGER_MS")
	i.MaxFileSizeMB = config.Int(0, "INSIGHTS_INGEST_MAX_FILE_SIZE_MB")
}

func (i IngestConfig) Stagger() time.Duration {
	return time.Duration(i.StaggerMS) * time.Millisecond
}

type AudioConfig struct {
	URLTTLHours              int `toml:"url_ttl_hours"`
	RefreshWindowMinutes     int `toml:"refresh_window_minutes"`
	MaxConcurrentGenerations int `toml:"max_concurrent_generations"`
	// GenerationTimeout 回调迟迟未到时，许可在该时长后自动收回
	GenerationTimeout Duration `toml:"generation_timeout"`
}

func (a *AudioConfig) FromENV() {
	a.URLTTLHours = config.Int(0, "INSIGHTS_AUDIO_URL_TTL_HOURS")
	a.RefreshWindowMinutes = config.Int(0, "INSIGHTS_AUDIO_REFRESH_WINDOW_MINUTES")
	a.MaxConcurrentGenerations = config.Int(0, "INSIGHTS_AUDIO_MAX_CONCURRENT_GENERATIONS")
	a.GenerationTimeout = Duration(config.Duration(0, "INSIGHTS_AUDIO_GENERATION_TIMEOUT"))
}

func (a AudioConfig) URLTTL() time.Duration {
	return time.Duration(a.URLTTLHours) * time.Hour
}

func (a AudioConfig) RefreshWindow() time.Duration {
	return time.Duration(a.RefreshWindowMinutes) * time.Minute
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

var _ sqlstore.ConnectConfig = PGConfig{}

func (m *PGConfig) FromENV() {
	m.DSN = config.String("", "INSIGHTS_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port，为空时使用进程内实现
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 连接池配置
	PoolSize     int `toml:"pool_size"`      // 连接池大小，默认10
	MinIdleConns int `toml:"min_idle_conns"` // 最小空闲连接数，默认0
	DialTimeout  int `toml:"dial_timeout"`   // 连接超时(秒)，默认5

	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = config.String("", "INSIGHTS_REDIS_ADDR")
	r.Password = config.String("", "INSIGHTS_REDIS_PASSWORD")
	r.DB = config.Int(0, "INSIGHTS_REDIS_DB")
	r.KeyPrefix = config.String("", "INSIGHTS_REDIS_KEY_PREFIX")
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = config.String("", "INSIGHTS_API_LOG_LEVEL")
	l.Path = config.String("", "INSIGHTS_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
