package engine

import (
	"io"
	"log/slog"
	"os"

	"github.com/dianpeng/flatdb/errs"
	"github.com/dianpeng/flatdb/exec"
	"github.com/dianpeng/flatdb/store"
	"gopkg.in/yaml.v3"
)

// Config of one engine. The zero value of every field falls back to the
// value of DefaultConfig.
type Config struct {
	DataDir      string       `yaml:"data_dir"`
	ChunkSize    int          `yaml:"chunk_size"`
	SortStrategy string       `yaml:"sort_strategy"` // auto, memory or external
	LogLevel     string       `yaml:"log_level"`     // used by the command line only
	Logger       *slog.Logger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:      ".",
		ChunkSize:    store.DefaultChunkSize,
		SortStrategy: exec.SortAuto.String(),
		LogLevel:     "warn",
	}
}

// LoadConfig reads a yaml file, fields missing from the file keep their
// default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errs.Wrap(errs.KindIO, "config", err, "cannot read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errs.Wrap(errs.KindIO, "config", err, "cannot parse %s", path)
	}
	return cfg, cfg.validate()
}

func (self *Config) validate() error {
	if self.ChunkSize < 0 {
		return errs.New(errs.KindUnsupportedQuery, "config", "chunk_size must be positive, got %d", self.ChunkSize)
	}
	if _, err := exec.ParseStrategy(self.SortStrategy); err != nil {
		return err
	}
	if _, err := ParseLevel(self.LogLevel); err != nil {
		return err
	}
	return nil
}

func (self *Config) fill() {
	def := DefaultConfig()
	if self.DataDir == "" {
		self.DataDir = def.DataDir
	}
	if self.ChunkSize == 0 {
		self.ChunkSize = def.ChunkSize
	}
	if self.SortStrategy == "" {
		self.SortStrategy = def.SortStrategy
	}
	if self.LogLevel == "" {
		self.LogLevel = def.LogLevel
	}
	if self.Logger == nil {
		self.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func ParseLevel(x string) (slog.Level, error) {
	var l slog.Level
	if x == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(x)); err != nil {
		return l, errs.Wrap(errs.KindUnsupportedQuery, "config", err, "unknown log level %q", x)
	}
	return l, nil
}
