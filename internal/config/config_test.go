package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "# only comments\n\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DAQSampleRateHz != 500 || cfg.DAQFilter != 4 || cfg.UseFilter {
		t.Errorf("DAQ defaults: %+v", cfg)
	}
	if cfg.ConfigTimeoutMS != 1000 || cfg.ReadTimeoutMS != 1000 {
		t.Errorf("timeouts: %d/%d", cfg.ConfigTimeoutMS, cfg.ReadTimeoutMS)
	}
	if cfg.FilterCutoff != 0.05 {
		t.Errorf("cutoff %v", cfg.FilterCutoff)
	}
	if cfg.PublishKey != "sai2::optoforceSensor::6Dsensor::force" {
		t.Errorf("key %q", cfg.PublishKey)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, strings.Join([]string{
		"LOG_LEVEL = DEBUG",
		"DAQ_PORT_INDEX=2",
		"DAQ_SAMPLE_RATE_HZ=250",
		"DAQ_FILTER=0",
		"DAQ_ZERO_OFFSET=true",
		"USE_FILTER=1",
		"FILTER_CUTOFF=0.1",
		"PUBLISH_BACKENDS=redis, NATS",
		"REDIS_ADDR=10.0.0.2:6379",
		"STATUS_LOG_INTERVAL=0",
	}, "\n")))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.DAQPortIndex != 2 || cfg.DAQSampleRateHz != 250 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.DAQFilter != 0 || !cfg.DAQZeroOffset || !cfg.UseFilter || cfg.FilterCutoff != 0.1 {
		t.Errorf("got %+v", cfg)
	}
	if !cfg.Publishes("redis") || !cfg.Publishes("nats") || cfg.Publishes("mqtt") {
		t.Errorf("backends %v", cfg.PublishBackends)
	}
	if cfg.RedisAddr != "10.0.0.2:6379" || cfg.StatusLogInterval != 0 {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing equals": "DAQ_FILTER 4",
		"unknown key":    "IMU_ACCEL_RANGE=2",
		"rate too high":  "DAQ_SAMPLE_RATE_HZ=1000",
		"rate zero":      "DAQ_SAMPLE_RATE_HZ=0",
		"filter range":   "DAQ_FILTER=7",
		"bad bool":       "USE_FILTER=maybe",
		"cutoff nyquist": "FILTER_CUTOFF=0.5",
		"bad backend":    "PUBLISH_BACKENDS=kafka",
		"no backend":     "PUBLISH_BACKENDS=",
		"bad log level":  "LOG_LEVEL=verbose",
		"empty broker":   "MQTT_BROKER=",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("Load accepted %q", body)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("missing file accepted")
	}
}
