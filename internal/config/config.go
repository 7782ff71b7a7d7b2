package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"batfit/internal/logging"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

// ServerConfig holds deployment settings for the fitness server and tools
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
	MCPAddr  string

	Method   string
	MaxGenes int
	MaxDim   int
	MaxBats  int
	Workers  int
	Memo     bool

	LogLevel  string
	LogFormat string
	LogOutput string

	// MethodConfig is the path of a factory JSON file, empty for defaults
	MethodConfig string
}

// Default returns the settings used when nothing is configured
func Default() *ServerConfig {
	return &ServerConfig{
		HTTPAddr:  ":8080",
		GRPCAddr:  ":9090",
		MaxGenes:  core.DefaultMaxGenes,
		MaxDim:    core.DefaultMaxDim,
		MaxBats:   core.DefaultMaxBats,
		LogLevel:  "info",
		LogFormat: "text",
		LogOutput: "stdout",
	}
}

var keys = []string{
	"FITNESS_HTTP_ADDR",
	"FITNESS_GRPC_ADDR",
	"FITNESS_MCP_ADDR",
	"FITNESS_METHOD",
	"FITNESS_MAX_GENES",
	"FITNESS_MAX_DIM",
	"FITNESS_MAX_BATS",
	"FITNESS_WORKERS",
	"FITNESS_MEMO",
	"FITNESS_LOG_LEVEL",
	"FITNESS_LOG_FORMAT",
	"FITNESS_LOG_OUTPUT",
	"FITNESS_METHOD_CONFIG",
}

// Load reads .env from the project root and applies environment overrides.
func Load() (*ServerConfig, error) {
	return LoadFrom(findProjectRoot())
}

// LoadFrom reads dir/.env, if present, then applies environment overrides.
func LoadFrom(dir string) (*ServerConfig, error) {
	values := make(map[string]string)

	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err := godotenv.Read(envPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", envPath, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}

	// Override with environment variables if set
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			values[key] = v
		}
	}

	cfg := Default()
	if err := cfg.apply(values); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) apply(values map[string]string) error {
	strs := map[string]*string{
		"FITNESS_HTTP_ADDR":     &c.HTTPAddr,
		"FITNESS_GRPC_ADDR":     &c.GRPCAddr,
		"FITNESS_MCP_ADDR":      &c.MCPAddr,
		"FITNESS_METHOD":        &c.Method,
		"FITNESS_LOG_LEVEL":     &c.LogLevel,
		"FITNESS_LOG_FORMAT":    &c.LogFormat,
		"FITNESS_LOG_OUTPUT":    &c.LogOutput,
		"FITNESS_METHOD_CONFIG": &c.MethodConfig,
	}
	for key, dst := range strs {
		if v, ok := values[key]; ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"FITNESS_MAX_GENES": &c.MaxGenes,
		"FITNESS_MAX_DIM":   &c.MaxDim,
		"FITNESS_MAX_BATS":  &c.MaxBats,
		"FITNESS_WORKERS":   &c.Workers,
	}
	for key, dst := range ints {
		v, ok := values[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return core.Errorf(core.ErrConfiguration, "%s=%q is not an integer", key, v)
		}
		*dst = n
	}

	if v, ok := values["FITNESS_MEMO"]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return core.Errorf(core.ErrConfiguration, "FITNESS_MEMO=%q is not a boolean", v)
		}
		c.Memo = b
	}

	return c.Limits().Check()
}

// Limits returns the configured cache capacity
func (c *ServerConfig) Limits() core.Limits {
	return core.Limits{MaxGenes: c.MaxGenes, MaxDim: c.MaxDim, MaxBats: c.MaxBats}
}

// Logging returns the logger settings
func (c *ServerConfig) Logging() *logging.LoggingConfig {
	return &logging.LoggingConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		Output:     c.LogOutput,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// FactoryConfig loads the method JSON, if any, and layers these settings on top.
func (c *ServerConfig) FactoryConfig() (*factory.MethodConfig, error) {
	mc := factory.DefaultMethodConfig()
	if c.MethodConfig != "" {
		loaded, err := factory.LoadConfigFromFile(c.MethodConfig)
		if err != nil {
			return nil, err
		}
		mc = loaded
	}

	if c.Method != "" {
		order := []string{c.Method}
		for _, name := range mc.PreferredOrder {
			if name != c.Method {
				order = append(order, name)
			}
		}
		mc.PreferredOrder = order
	}
	if c.Workers > 0 {
		mc.Workers = c.Workers
	}
	if c.Memo {
		mc.EnableMemo = true
	}
	mc.Limits = c.Limits()
	return mc, nil
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	// First check CWD for .env file
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	// Then walk up looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
