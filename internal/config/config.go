package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPath is the config file the commands load unless -config is given.
const DefaultPath = "forcetorque_config.txt"

// Config holds all application configuration values.
type Config struct {
	// Logging: trace, debug, info, warn, error
	LogLevel string

	// DAQ discovery and link
	DAQPortGlob   string
	DAQPortIndex  int
	DAQBaudRate   int
	DAQEnumWaitMS int // settle time before enumerating

	// DAQ configuration sent on connect
	DAQSampleRateHz int  // 1-500
	DAQFilter       int  // on-board filter selector 0-6
	DAQZeroOffset   bool // hardware zeroing

	// Session timing
	ConfigTimeoutMS int
	ReadTimeoutMS   int

	// Software filter
	UseFilter    bool
	FilterCutoff float64 // normalized to the sample rate, (0, 0.5)

	// Calibration profiles (YAML). Empty uses the built-in profile only.
	ProfilesFile string

	// Publishing
	PublishKey      string
	PublishBackends []string // mqtt, redis, nats

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Redis
	RedisAddr      string
	RedisTimeoutMS int

	// NATS
	NATSURL string

	// Timing
	StatusLogInterval int // milliseconds, 0 disables

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the values used for keys missing from the file.
func Default() *Config {
	return &Config{
		LogLevel:              "info",
		DAQPortGlob:           "/dev/ttyACM*",
		DAQBaudRate:           1000000,
		DAQEnumWaitMS:         500,
		DAQSampleRateHz:       500,
		DAQFilter:             4,
		ConfigTimeoutMS:       1000,
		ReadTimeoutMS:         1000,
		FilterCutoff:          0.05,
		PublishKey:            "sai2::optoforceSensor::6Dsensor::force",
		PublishBackends:       []string{"mqtt"},
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDProducer:  "forcetorque-producer",
		MQTTClientIDConsole:   "forcetorque-console",
		MQTTClientIDWeb:       "forcetorque-web",
		MQTTClientIDDisplay:   "forcetorque-display",
		RedisAddr:             "localhost:6379",
		RedisTimeoutMS:        1500,
		NATSURL:               "nats://localhost:4222",
		StatusLogInterval:     1000,
		WebServerPort:         8080,
		DisplayI2CBus:         "",
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	// DAQ
	case "DAQ_PORT_GLOB":
		c.DAQPortGlob = value
	case "DAQ_PORT_INDEX":
		c.DAQPortIndex, err = parseInt(key, value, 0, 15)
	case "DAQ_BAUD_RATE":
		c.DAQBaudRate, err = parseInt(key, value, 1, 12000000)
	case "DAQ_ENUM_WAIT_MS":
		c.DAQEnumWaitMS, err = parseInt(key, value, 0, 60000)
	case "DAQ_SAMPLE_RATE_HZ":
		c.DAQSampleRateHz, err = parseInt(key, value, 1, 500)
	case "DAQ_FILTER":
		// 0=none, 1=500Hz, 2=150Hz, 3=50Hz, 4=15Hz, 5=5Hz, 6=1.5Hz
		c.DAQFilter, err = parseInt(key, value, 0, 6)
	case "DAQ_ZERO_OFFSET":
		c.DAQZeroOffset, err = parseBool(key, value)

	// Session timing
	case "CONFIG_TIMEOUT_MS":
		c.ConfigTimeoutMS, err = parseInt(key, value, 1, 60000)
	case "READ_TIMEOUT_MS":
		c.ReadTimeoutMS, err = parseInt(key, value, 1, 60000)

	// Software filter
	case "USE_FILTER":
		c.UseFilter, err = parseBool(key, value)
	case "FILTER_CUTOFF":
		cutoff, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid FILTER_CUTOFF %q: %w", value, perr)
		}
		if cutoff <= 0 || cutoff >= 0.5 {
			return fmt.Errorf("FILTER_CUTOFF must be in (0, 0.5), got %v", cutoff)
		}
		c.FilterCutoff = cutoff

	case "PROFILES_FILE":
		c.ProfilesFile = value

	// Publishing
	case "PUBLISH_KEY":
		c.PublishKey = value
	case "PUBLISH_BACKENDS":
		var backends []string
		for _, b := range strings.Split(value, ",") {
			b = strings.ToLower(strings.TrimSpace(b))
			switch b {
			case "":
				continue
			case "mqtt", "redis", "nats":
				backends = append(backends, b)
			default:
				return fmt.Errorf("PUBLISH_BACKENDS: unknown backend %q", b)
			}
		}
		c.PublishBackends = backends

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Redis
	case "REDIS_ADDR":
		c.RedisAddr = value
	case "REDIS_TIMEOUT_MS":
		c.RedisTimeoutMS, err = parseInt(key, value, 1, 60000)

	// NATS
	case "NATS_URL":
		c.NATSURL = value

	// Timing
	case "STATUS_LOG_INTERVAL":
		c.StatusLogInterval, err = parseInt(key, value, 0, 3600000)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 10, 60000)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks the fields that must be set for the configured backends.
func (c *Config) validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be trace, debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.DAQPortGlob == "" {
		return fmt.Errorf("DAQ_PORT_GLOB is required")
	}
	if c.PublishKey == "" {
		return fmt.Errorf("PUBLISH_KEY is required")
	}
	if len(c.PublishBackends) == 0 {
		return fmt.Errorf("PUBLISH_BACKENDS needs at least one backend")
	}
	for _, b := range c.PublishBackends {
		switch {
		case b == "mqtt" && c.MQTTBroker == "":
			return fmt.Errorf("MQTT_BROKER is required when publishing to mqtt")
		case b == "redis" && c.RedisAddr == "":
			return fmt.Errorf("REDIS_ADDR is required when publishing to redis")
		case b == "nats" && c.NATSURL == "":
			return fmt.Errorf("NATS_URL is required when publishing to nats")
		}
	}
	return nil
}

// Publishes reports whether backend is in PUBLISH_BACKENDS.
func (c *Config) Publishes(backend string) bool {
	for _, b := range c.PublishBackends {
		if b == backend {
			return true
		}
	}
	return false
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
