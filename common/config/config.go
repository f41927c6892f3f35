package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func loadEnvString(key string, result *string) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	*result = s
}

func loadEnvUint(key string, result *uint) {
	s, ok := os.LookupEnv(key)

	if !ok {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return
	}
	*result = uint(n)
}

func loadEnvBool(key string, result *bool) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return
	}
	*result = b
}

func loadEnvDuration(key string, result *time.Duration) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return
	}
	*result = d
}

/* Configuration */

/* PgSQL Configuration */
type pgSqlConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Database string `json:"database"`
	SslMode  string `json:"ssl_mode"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (p pgSqlConfig) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s", p.Host, p.Port, p.User, p.Password, p.Database, p.SslMode)
}

func defaultPgSql() pgSqlConfig {
	return pgSqlConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "counciljobs",
		User:     "",
		Password: "",
		SslMode:  "disable",
	}
}

func (p *pgSqlConfig) loadFromEnv() {
	loadEnvString("POSTGRES_HOST", &p.Host)
	loadEnvUint("POSTGRES_PORT", &p.Port)
	loadEnvString("POSTGRES_DB_NAME", &p.Database)
	loadEnvString("POSTGRES_SSLMODE", &p.SslMode)
	loadEnvString("POSTGRES_USERNAME", &p.User)
	loadEnvString("POSTGRES_PASSWORD", &p.Password)
}

/* Listen Configuration */

type listenConfig struct {
	Host string `json:"host"`
	Port uint   `json:"port"`
}

func (l listenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

func defaultListenConfig() listenConfig {
	return listenConfig{
		Host: "127.0.0.1",
		Port: 8080,
	}
}

func (l *listenConfig) loadFromEnv() {
	loadEnvString("LISTEN_HOST", &l.Host)
	loadEnvUint("LISTEN_PORT", &l.Port)
}

type natsConfig struct {
	Host     string
	Port     uint
	Username string
	Password string
}

func (c *natsConfig) loadFromEnv() {
	loadEnvString("NATS_HOST", &c.Host)
	loadEnvUint("NATS_PORT", &c.Port)
	c.Username = getEnv("NATS_USER", "")
	c.Password = getEnv("NATS_PASSWORD", "")
}

func (c *natsConfig) URL() string {
	return fmt.Sprintf("nats://%s:%d", c.Host, c.Port)
}

func defaultNatsConfig() natsConfig {
	return natsConfig{
		Host: "localhost",
		Port: 4222,
	}
}

type securityConfig struct {
	BackendApiKey string
	ServerSalt    string
}

func (s *securityConfig) loadFromEnv() {
	s.BackendApiKey = getEnv("BACKEND_API_KEY", "")
	s.ServerSalt = getEnv("SERVER_SALT", "")
}

func defaultSecurityConfig() securityConfig {
	return securityConfig{
		BackendApiKey: "",
		ServerSalt:    "",
	}
}

type redisConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r *redisConfig) loadFromEnv() {
	loadEnvString("REDIS_HOST", &r.Host)
	loadEnvUint("REDIS_PORT", &r.Port)
	loadEnvString("REDIS_PASSWORD", &r.Password)

	if dbStr := getEnv("REDIS_DB", "0"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

func defaultRedisConfig() redisConfig {
	return redisConfig{
		Host:     "localhost",
		Port:     6379,
		Password: "",
		DB:       0,
	}
}

type GCSConfig struct {
	ProjectID       string
	CredentialsFile string
	Bucket          string
}

func (g *GCSConfig) loadFromEnv() {
	g.ProjectID = getEnv("GCS_PROJECT_ID", "")
	g.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", "")
	g.Bucket = getEnv("GCS_STORAGE_BUCKET", "")
}

func defaultGcsConfig() GCSConfig {
	return GCSConfig{
		ProjectID:       "",
		CredentialsFile: "",
		Bucket:          "",
	}
}

/* Fetcher Configuration */

type FetcherConfig struct {
	// BrowserURL is the websocket URL of a remote browser. Empty means rod
	// launches its own.
	BrowserURL     string
	NavTimeout     time.Duration
	SettleDelay    time.Duration
	RequestTimeout time.Duration
	UserAgent      string
	PagePoolSize   int
}

func (f *FetcherConfig) loadFromEnv() {
	loadEnvString("BROWSER_WS_URL", &f.BrowserURL)
	loadEnvDuration("FETCH_NAV_TIMEOUT", &f.NavTimeout)
	loadEnvDuration("FETCH_SETTLE_DELAY", &f.SettleDelay)
	loadEnvDuration("FETCH_REQUEST_TIMEOUT", &f.RequestTimeout)
	loadEnvString("FETCH_USER_AGENT", &f.UserAgent)
	if s := getEnv("FETCH_PAGE_POOL_SIZE", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			f.PagePoolSize = n
		}
	}
}

func defaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		NavTimeout:     60 * time.Second,
		SettleDelay:    3 * time.Second,
		RequestTimeout: 30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		PagePoolSize:   5,
	}
}

/* Pipeline Configuration */

type PipelineConfig struct {
	// PublicBaseURL is the canonical job-board base used to build "view full
	// listing" links appended to published payloads.
	PublicBaseURL  string
	MaxSourceConc  int
	MaxPagesPerRun int
	PublishRetries int
}

func (p *PipelineConfig) loadFromEnv() {
	loadEnvString("PUBLIC_BASE_URL", &p.PublicBaseURL)
	if s := getEnv("PIPELINE_MAX_SOURCE_CONCURRENCY", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.MaxSourceConc = n
		}
	}
	if s := getEnv("PIPELINE_MAX_PAGES", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.MaxPagesPerRun = n
		}
	}
	if s := getEnv("PUBLISH_RETRIES", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.PublishRetries = n
		}
	}
}

func defaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PublicBaseURL:  "https://jobs.example.gov.uk",
		MaxSourceConc:  4,
		MaxPagesPerRun: 10,
		PublishRetries: 3,
	}
}

/* Scheduler Configuration */

type SchedulerConfig struct {
	Enabled   bool
	RunSpec   string
	SweepSpec string
}

func (s *SchedulerConfig) loadFromEnv() {
	loadEnvBool("SCHEDULER_ENABLED", &s.Enabled)
	loadEnvString("SCHEDULER_RUN_SPEC", &s.RunSpec)
	loadEnvString("SCHEDULER_SWEEP_SPEC", &s.SweepSpec)
}

func defaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:   true,
		RunSpec:   "@every 6h",
		SweepSpec: "@every 1h",
	}
}

type Config struct {
	Listen    listenConfig
	PgSql     pgSqlConfig
	Security  securityConfig
	Nats      natsConfig
	Redis     redisConfig
	GCS       GCSConfig
	Fetcher   FetcherConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
}

func (c *Config) LoadFromEnv() {
	c.Listen.loadFromEnv()
	c.PgSql.loadFromEnv()
	c.Security.loadFromEnv()
	c.Nats.loadFromEnv()
	c.Redis.loadFromEnv()
	c.GCS.loadFromEnv()
	c.Fetcher.loadFromEnv()
	c.Pipeline.loadFromEnv()
	c.Scheduler.loadFromEnv()
}

func DefaultConfig() Config {
	return Config{
		Listen:    defaultListenConfig(),
		PgSql:     defaultPgSql(),
		Security:  defaultSecurityConfig(),
		Nats:      defaultNatsConfig(),
		Redis:     defaultRedisConfig(),
		GCS:       defaultGcsConfig(),
		Fetcher:   defaultFetcherConfig(),
		Pipeline:  defaultPipelineConfig(),
		Scheduler: defaultSchedulerConfig(),
	}
}
