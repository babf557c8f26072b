package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Extractor ExtractorConfig
	Server    ServerConfig
	Log       LogConfig
	Policy    biometric.Policy
}

type DatabaseConfig struct {
	URL      string // PostgreSQL connection URL
	MaxConns int    // Maximum pool connections (default 10)
}

type RedisConfig struct {
	Addr     string // empty means per-user locks stay in-process
	Password string
	DB       int
	LockTTL  time.Duration
}

type ExtractorConfig struct {
	Mode    string // "worker" or "http"
	URL     string // base URL of the detection service (http mode)
	Command string // interpreter for the engine subprocess (worker mode)
	Script  string
	Workers int
	Timeout time.Duration
}

type ServerConfig struct {
	Host   string
	Port   int
	APIKey string // optional shared secret checked against X-API-Key
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// DatabaseURL returns DATABASE_URL, or builds one from the POSTGRES_* variables.
func DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := envString("POSTGRES_PORT", "5432")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	return "postgres://localhost:5432/faceguard"
}

// Load reads the configuration from the environment. When CALIBRATION_FILE is
// set, its values override the policy before the individual env overrides.
func Load() (*Config, error) {
	policy := biometric.DefaultPolicy()
	if path := os.Getenv("CALIBRATION_FILE"); path != "" {
		p, err := LoadCalibration(path, policy)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	policy.MatchThreshold = envFloat("MATCH_THRESHOLD", policy.MatchThreshold)
	policy.MinConfidence = envFloat("MIN_DETECTION_CONFIDENCE", policy.MinConfidence)
	policy.MinFaceArea = envFloat("MIN_FACE_AREA", policy.MinFaceArea)
	policy.MaxNoseOffsetRatio = envFloat("MAX_NOSE_OFFSET_RATIO", policy.MaxNoseOffsetRatio)
	policy.DescriptorLength = envInt("DESCRIPTOR_LENGTH", policy.DescriptorLength)
	policy.MinCaptures = envInt("MIN_CAPTURES", policy.MinCaptures)
	policy.MaxCaptures = envInt("MAX_CAPTURES", policy.MaxCaptures)
	policy.Landmarks.LeftEyeOuter = envInt("LANDMARK_LEFT_EYE_OUTER", policy.Landmarks.LeftEyeOuter)
	policy.Landmarks.RightEyeOuter = envInt("LANDMARK_RIGHT_EYE_OUTER", policy.Landmarks.RightEyeOuter)
	policy.Landmarks.NoseTip = envInt("LANDMARK_NOSE_TIP", policy.Landmarks.NoseTip)

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid biometric policy: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      DatabaseURL(),
			MaxConns: envInt("DATABASE_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
			LockTTL:  envDuration("LOCK_TTL", 30*time.Second),
		},
		Extractor: ExtractorConfig{
			Mode:    envString("EXTRACTOR_MODE", "worker"),
			URL:     envString("EXTRACTOR_URL", "http://localhost:8000"),
			Command: envString("EXTRACTOR_COMMAND", "python3"),
			Script:  envString("EXTRACTOR_SCRIPT", "engine/worker.py"),
			Workers: envInt("EXTRACTOR_WORKERS", 2),
			Timeout: envDuration("EXTRACTOR_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Host:   envString("HTTP_HOST", "0.0.0.0"),
			Port:   envInt("HTTP_PORT", 8080),
			APIKey: os.Getenv("API_KEY"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Policy: policy,
	}

	if cfg.Extractor.Mode != "worker" && cfg.Extractor.Mode != "http" {
		return nil, fmt.Errorf("EXTRACTOR_MODE must be \"worker\" or \"http\", got %q", cfg.Extractor.Mode)
	}
	if cfg.Extractor.Workers < 1 {
		cfg.Extractor.Workers = 1
	}
	return cfg, nil
}

// LoadCalibration reads a YAML calibration profile from path. Fields missing
// from the file keep the values of base.
func LoadCalibration(path string, base biometric.Policy) (biometric.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read calibration file: %w", err)
	}
	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("failed to parse calibration file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return base, fmt.Errorf("calibration file %s: %w", path, err)
	}
	return p, nil
}

// WriteCalibration stores p as a YAML calibration profile.
func WriteCalibration(path string, p biometric.Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
