package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/rowkeeper/internal/paths"
	"github.com/mesh-intelligence/rowkeeper/pkg/sqlite"
	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir  = "data_dir"
	cfgKeyDBFile   = "db_file"
	cfgKeyMe       = "me"
	cfgKeyReadOnly = "read_only"
	cfgKeyLogLevel = "log_level"
	cfgKeyImputers = "imputers"

	defaultLogLevel = "warn"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	DataDir  string            `yaml:"data_dir,omitempty"`
	DBFile   string            `yaml:"db_file,omitempty"`
	Me       string            `yaml:"me,omitempty"`
	ReadOnly bool              `yaml:"read_only"`
	LogLevel string            `yaml:"log_level"`
	Imputers map[string]string `yaml:"imputers,omitempty"`
}

// loadConfig reads config.yaml from configDir with Viper. A missing file is
// not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyReadOnly, false)
	_ = v.BindEnv(cfgKeyMe, "ROWKEEPER_ME")
	_ = v.BindEnv(cfgKeyLogLevel, "ROWKEEPER_LOG_LEVEL")

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values unless it
// already exists.
func writeConfigIfMissing(configDir, dataDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		DataDir:  dataDir,
		DBFile:   types.DefaultDBFile,
		LogLevel: defaultLogLevel,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# rowkeeper configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// engineConfig assembles the engine configuration from flags and
// config.yaml.
func (a *app) engineConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		DataDir:  dataDir,
		DBFile:   a.v.GetString(cfgKeyDBFile),
		Me:       a.v.GetString(cfgKeyMe),
		ReadOnly: a.v.GetBool(cfgKeyReadOnly) || a.flags.dryRun,
	}
	return cfg, cfg.Validate()
}

// parseImputer turns a config strategy into an ImputeFunc. Known strategies
// are "uuid" and "slug:<column>".
func parseImputer(strategy string) (types.ImputeFunc, error) {
	strategy = strings.TrimSpace(strategy)
	switch {
	case strategy == "uuid":
		return types.UUIDKey(), nil
	case strings.HasPrefix(strategy, "slug:"):
		col := strings.TrimSpace(strings.TrimPrefix(strategy, "slug:"))
		if col == "" {
			return nil, fmt.Errorf("imputer %q: missing column", strategy)
		}
		return types.SlugKey(col), nil
	default:
		return nil, fmt.Errorf("unknown imputer %q (want uuid or slug:<column>)", strategy)
	}
}

// engineOptions returns the logger and the configured imputers.
func (a *app) engineOptions() ([]sqlite.Option, error) {
	opts := []sqlite.Option{sqlite.WithLogger(a.logger)}

	strategies := a.v.GetStringMapString(cfgKeyImputers)
	tables := make([]string, 0, len(strategies))
	for t := range strategies {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		f, err := parseImputer(strategies[t])
		if err != nil {
			return nil, fmt.Errorf("config %s.%s: %w", cfgKeyImputers, t, err)
		}
		opts = append(opts, sqlite.WithImputer(t, f))
	}
	return opts, nil
}

// openEngine opens the engine described by flags and config.yaml. The
// caller must Close it.
func (a *app) openEngine() (types.Engine, error) {
	cfg, err := a.engineConfig()
	if err != nil {
		return nil, err
	}
	opts, err := a.engineOptions()
	if err != nil {
		return nil, err
	}
	eng, err := sqlite.Open(cfg, opts...)
	if err != nil {
		return nil, sysError(fmt.Errorf("open %s: %w", cfg.DBPath(), err))
	}
	return eng, nil
}
