package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/f3nation/f3map/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist, looking in the working directory
// first and falling back to the directory holding go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if path, ok := locateEnvFile(file); ok {
			existingFiles = append(existingFiles, path)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func locateEnvFile(name string) (string, bool) {
	if fileExists(name) {
		return name, true
	}
	if filepath.IsAbs(name) {
		return "", false
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if fileExists(filepath.Join(dir, "go.mod")) {
			candidate := filepath.Join(dir, name)
			return candidate, fileExists(candidate)
		}
		if filepath.Dir(dir) == dir {
			return "", false
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"f3map"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type LogOptions struct {
	Path       string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	SubmitRPM int    `env:"RATE_LIMIT_SUBMIT_RPM" envDefault:"60"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.SubmitRPM < 0 {
		return fmt.Errorf("rate limit SubmitRPM must be non-negative, got %d", r.SubmitRPM)
	}
	if r.SubmitRPM > 1000000 {
		return fmt.Errorf("rate limit SubmitRPM too high, maximum is 1,000,000, got %d", r.SubmitRPM)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"f3map"`
}

type AuthzOptions struct {
	// Empty paths select the embedded default model and policy.
	ModelPath  string `env:"AUTHZ_MODEL_PATH"`
	PolicyPath string `env:"AUTHZ_POLICY_PATH"`
}

type CORSOptions struct {
	AllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

func (c CORSOptions) Origins() []string {
	return splitList(c.AllowedOrigins)
}

type UpdateRequestOptions struct {
	// AutoApproveMode is disabled or authorized.
	AutoApproveMode string `env:"AUTO_APPROVE_MODE" envDefault:"authorized"`
	// DirectCommit commits requests from sufficiently authorized submitters without review.
	DirectCommit bool `env:"DIRECT_COMMIT" envDefault:"true"`
	PageSize     int  `env:"UPDATE_REQUESTS_PAGE_SIZE" envDefault:"50"`
	MaxPageSize  int  `env:"UPDATE_REQUESTS_MAX_PAGE_SIZE" envDefault:"200"`
}

type Configuration struct {
	Database       DatabaseOptions
	Log            LogOptions
	Prometheus     PrometheusOptions
	OpenTelemetry  OpenTelemetryOptions
	RateLimit      RateLimitOptions
	Authz          AuthzOptions
	CORS           CORSOptions
	UpdateRequests UpdateRequestOptions

	RedisURL         string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	OrgCacheBackend  string        `env:"ORG_CACHE_BACKEND" envDefault:"memory"` // none, memory or redis
	OrgCacheTTL      time.Duration `env:"ORG_CACHE_TTL" envDefault:"10m"`
	ServerPort       int           `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string        `env:"-"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"error"`
	// Looked up on every request; a uuid is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Set by the auth proxy in front of the API.
	UserIDHeader string `env:"USER_ID_HEADER" envDefault:"X-User-ID"`
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *logging.RotatingFile
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load builds a configuration from the given env files without touching the singleton.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.validateUpdateRequests(); err != nil {
		return err
	}
	if err := c.validateOrgCache(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), logging.FileOptions{
		Path:       c.Log.Path,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validateUpdateRequests() error {
	mode := strings.ToLower(strings.TrimSpace(c.UpdateRequests.AutoApproveMode))
	if mode == "" {
		mode = "authorized"
	}
	switch mode {
	case "disabled", "authorized":
	default:
		return fmt.Errorf("invalid AUTO_APPROVE_MODE=%q (expected disabled|authorized)", c.UpdateRequests.AutoApproveMode)
	}
	c.UpdateRequests.AutoApproveMode = mode

	if c.UpdateRequests.PageSize <= 0 {
		return fmt.Errorf("UPDATE_REQUESTS_PAGE_SIZE must be positive, got %d", c.UpdateRequests.PageSize)
	}
	if c.UpdateRequests.MaxPageSize < c.UpdateRequests.PageSize {
		return fmt.Errorf("UPDATE_REQUESTS_MAX_PAGE_SIZE (%d) must be >= UPDATE_REQUESTS_PAGE_SIZE (%d)", c.UpdateRequests.MaxPageSize, c.UpdateRequests.PageSize)
	}
	return nil
}

func (c *Configuration) validateOrgCache() error {
	backend := strings.ToLower(strings.TrimSpace(c.OrgCacheBackend))
	if backend == "" {
		backend = "memory"
	}
	switch backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("invalid ORG_CACHE_BACKEND=%q (expected none|memory|redis)", c.OrgCacheBackend)
	}
	c.OrgCacheBackend = backend
	return nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
