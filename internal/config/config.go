package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Node        NodeConfig       `yaml:"node"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	Acoustic    AcousticConfig   `yaml:"acoustic"`
	Phonemizer  PhonemizerConfig `yaml:"phonemizer"`
	GOP         GOPConfig        `yaml:"gop"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type NodeConfig struct {
	ID                string           `yaml:"id"`
	Role              string           `yaml:"role"`
	HeartbeatInterval int              `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int              `yaml:"heartbeat_timeout_ms"`
	Capabilities      []NodeCapability `yaml:"capabilities"`
}

type NodeCapability struct {
	Name       string            `yaml:"name"`
	Tier       string            `yaml:"tier"`
	Attributes map[string]string `yaml:"attributes"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// AcousticConfig selects and configures the CTC acoustic-model backend
// that turns preprocessed audio into per-frame phoneme logits.
type AcousticConfig struct {
	Mode           string `yaml:"mode"` // mock, onnx, exec
	Command        string `yaml:"command"`
	ModelPath      string `yaml:"model_path"`
	SharedLibPath  string `yaml:"shared_lib_path"`
	InputName      string `yaml:"input_name"`
	OutputName     string `yaml:"output_name"`
	VocabPath      string `yaml:"vocab_path"`
	VocabSize      int    `yaml:"vocab_size"`
	FramesPerSec   int    `yaml:"mock_frames_per_sec"`
	SampleRate     int    `yaml:"sample_rate"`
	Channels       int    `yaml:"channels"`
}

// PhonemizerConfig selects and configures the grapheme-to-phoneme backend
// used to build the reference phoneme sequence from sentence text.
type PhonemizerConfig struct {
	Mode     string `yaml:"mode"` // dict, goruut, exec
	Language string `yaml:"language"`
	Command  string `yaml:"command"`
}

// GOPConfig holds the policy constants that turn aligned log-probabilities
// into excellent/good/poor tiers.
type GOPConfig struct {
	ThresholdExcellent float64 `yaml:"threshold_excellent"`
	ThresholdGood      float64 `yaml:"threshold_good"`
	BlankID            int     `yaml:"blank_id"`
}

func Default() Config {
	return Config{
		RuntimeName: "gop-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Node: NodeConfig{
			ID:                "gop-node-1",
			Role:              "runtime",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
			Capabilities: []NodeCapability{
				{Name: "pronunciation.scoring", Tier: "balanced"},
			},
		},
		EventStore: EventStoreConfig{
			Path:          "./data/gop-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Acoustic: AcousticConfig{
			Mode:         "mock",
			InputName:    "input",
			OutputName:   "logits",
			VocabSize:    64,
			FramesPerSec: 50,
			SampleRate:   16000,
			Channels:     1,
		},
		Phonemizer: PhonemizerConfig{
			Mode:     "dict",
			Language: "English",
		},
		GOP: GOPConfig{
			ThresholdExcellent: -1.0,
			ThresholdGood:      -2.5,
			BlankID:            0,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "GOP_RUNTIME_NAME")
	overrideString(&cfg.Environment, "GOP_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "GOP_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "GOP_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "GOP_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "GOP_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "GOP_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "GOP_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "GOP_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "GOP_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "GOP_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "GOP_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "GOP_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "GOP_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "GOP_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "GOP_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Node.ID, "GOP_NODE_ID")
	overrideString(&cfg.Node.Role, "GOP_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "GOP_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "GOP_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "GOP_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "GOP_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "GOP_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "GOP_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "GOP_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.Acoustic.Mode, "GOP_ACOUSTIC_MODE")
	overrideString(&cfg.Acoustic.Command, "GOP_ACOUSTIC_COMMAND")
	overrideString(&cfg.Acoustic.ModelPath, "GOP_ACOUSTIC_MODEL_PATH")
	overrideString(&cfg.Acoustic.SharedLibPath, "GOP_ACOUSTIC_SHARED_LIB_PATH")
	overrideString(&cfg.Acoustic.InputName, "GOP_ACOUSTIC_INPUT_NAME")
	overrideString(&cfg.Acoustic.OutputName, "GOP_ACOUSTIC_OUTPUT_NAME")
	overrideString(&cfg.Acoustic.VocabPath, "GOP_ACOUSTIC_VOCAB_PATH")
	overrideInt(&cfg.Acoustic.VocabSize, "GOP_ACOUSTIC_VOCAB_SIZE")
	overrideInt(&cfg.Acoustic.FramesPerSec, "GOP_ACOUSTIC_MOCK_FRAMES_PER_SEC")
	overrideInt(&cfg.Acoustic.SampleRate, "GOP_ACOUSTIC_SAMPLE_RATE")
	overrideInt(&cfg.Acoustic.Channels, "GOP_ACOUSTIC_CHANNELS")
	overrideString(&cfg.Phonemizer.Mode, "GOP_PHONEMIZER_MODE")
	overrideString(&cfg.Phonemizer.Language, "GOP_PHONEMIZER_LANGUAGE")
	overrideString(&cfg.Phonemizer.Command, "GOP_PHONEMIZER_COMMAND")
	overrideFloat(&cfg.GOP.ThresholdExcellent, "GOP_THRESHOLD_EXCELLENT")
	overrideFloat(&cfg.GOP.ThresholdGood, "GOP_THRESHOLD_GOOD")
	overrideInt(&cfg.GOP.BlankID, "GOP_BLANK_ID")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if len(cfg.Node.Capabilities) == 0 {
		return errors.New("node.capabilities must not be empty")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Acoustic.Mode {
	case "mock", "onnx", "exec":
	default:
		return errors.New("acoustic.mode must be one of mock|onnx|exec")
	}
	if cfg.Acoustic.Mode == "onnx" && cfg.Acoustic.ModelPath == "" {
		return errors.New("acoustic.model_path must be set when mode=onnx")
	}
	if cfg.Acoustic.Mode == "exec" && cfg.Acoustic.Command == "" {
		return errors.New("acoustic.command must be set when mode=exec")
	}
	if cfg.Acoustic.Mode != "mock" && cfg.Acoustic.VocabPath == "" {
		return errors.New("acoustic.vocab_path must be set unless mode=mock")
	}
	if cfg.Acoustic.VocabSize <= 1 {
		return errors.New("acoustic.vocab_size must be greater than 1")
	}
	if cfg.Acoustic.SampleRate <= 0 {
		return errors.New("acoustic.sample_rate must be positive")
	}
	if cfg.Acoustic.Channels <= 0 {
		return errors.New("acoustic.channels must be positive")
	}
	switch cfg.Phonemizer.Mode {
	case "dict", "goruut", "exec":
	default:
		return errors.New("phonemizer.mode must be one of dict|goruut|exec")
	}
	if cfg.Phonemizer.Mode == "exec" && cfg.Phonemizer.Command == "" {
		return errors.New("phonemizer.command must be set when mode=exec")
	}
	if cfg.GOP.ThresholdGood >= cfg.GOP.ThresholdExcellent {
		return errors.New("gop.threshold_good must be lower than gop.threshold_excellent")
	}
	if cfg.GOP.BlankID < 0 {
		return errors.New("gop.blank_id must be >= 0")
	}
	return nil
}
