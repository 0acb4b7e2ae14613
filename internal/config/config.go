package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Default file names used when neither the config file nor the command line sets them.
const (
	DefaultLookupFile  = "lookup_table.csv"
	DefaultFlowLogFile = "flow_logs.txt"
	DefaultReportFile  = "analysis_results.csv"
)

// InputConfig names the two input files of a run.
type InputConfig struct {
	LookupFile  string `yaml:"lookup_file"`
	FlowLogFile string `yaml:"flow_log_file"`
}

// OutputConfig names the text report destination.
type OutputConfig struct {
	ReportFile string `yaml:"report_file"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// ClickHouseConfig holds the connection settings for the ClickHouse sink.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the connection settings for the NATS sink.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SnapshotConfig holds the settings for the local snapshot sink.
type SnapshotConfig struct {
	RootPath string `yaml:"root_path"`
}

// APIConfig holds the listen addresses of the history API servers.
// An empty address disables that server.
type APIConfig struct {
	HTTPListenAddr string `yaml:"http_listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
}

// SinkDef defines a single export sink from the config file.
type SinkDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Timeout    string           `yaml:"timeout"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Sinks   []SinkDef     `yaml:"sinks"`
	API     *APIConfig    `yaml:"api"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in every unset value.
func (c *Config) ApplyDefaults() {
	if c.Input.LookupFile == "" {
		c.Input.LookupFile = DefaultLookupFile
	}
	if c.Input.FlowLogFile == "" {
		c.Input.FlowLogFile = DefaultFlowLogFile
	}
	if c.Output.ReportFile == "" {
		c.Output.ReportFile = DefaultReportFile
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "console"
	}
	if c.API == nil {
		c.API = &APIConfig{HTTPListenAddr: ":8080", GRPCListenAddr: ":9090"}
	}
	for i := range c.Sinks {
		if c.Sinks[i].Timeout == "" {
			c.Sinks[i].Timeout = "10s"
		}
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct
// with defaults applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// LoadOrDefault loads filePath when it exists and falls back to Default otherwise.
// Any other read or parse error is returned.
func LoadOrDefault(filePath string) (*Config, error) {
	cfg, err := LoadConfig(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
