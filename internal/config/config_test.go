package config

import (
	"testing"
	"time"

	"github.com/marmos91/ara-ipcbinding/internal/ipc/message"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format text, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("expected default log output stdout, got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ProcessingModeAndReactor(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.ProcessingMode != ProcessingModeThreadDriven {
		t.Errorf("expected default processing mode thread_driven, got %q", cfg.ProcessingMode)
	}
	if cfg.ReactorQueueDepth != 256 {
		t.Errorf("expected default reactor queue depth 256, got %d", cfg.ReactorQueueDepth)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected default shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{ProcessingMode: ProcessingModePolling, ReactorQueueDepth: 42}
	applyDefaults(cfg)

	if cfg.ProcessingMode != ProcessingModePolling {
		t.Errorf("explicit processing mode was overwritten: %q", cfg.ProcessingMode)
	}
	if cfg.ReactorQueueDepth != 42 {
		t.Errorf("explicit reactor queue depth was overwritten: %d", cfg.ReactorQueueDepth)
	}
}

func TestValidate_RejectsUnspecifiedAddress(t *testing.T) {
	cfg := defaultConfig()
	cfg.Instances = []InstanceConfig{{ServiceID: 0x1234, Domain: 0, Port: 0}}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for (0,0) address, got nil")
	}
}

func TestValidate_RejectsConflictingAddressOwners(t *testing.T) {
	cfg := defaultConfig()
	cfg.Instances = []InstanceConfig{
		{ServiceID: 1, InstanceID: 1, Domain: 1, Port: 1},
		{ServiceID: 2, InstanceID: 1, Domain: 1, Port: 1},
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for conflicting address owners, got nil")
	}
}

func TestValidate_AcceptsDistinctAddresses(t *testing.T) {
	cfg := defaultConfig()
	cfg.Instances = []InstanceConfig{
		{ServiceID: 1, InstanceID: 1, Domain: 1, Port: 1},
		{ServiceID: 2, InstanceID: 1, Domain: 1, Port: 2},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestInstanceConfig_IdentifierAndAddress(t *testing.T) {
	inst := InstanceConfig{ServiceID: 0x1234, InstanceID: 1, MajorVer: 1, MinorVer: 2, Domain: 7, Port: 9}

	want := message.ServiceInstanceIdentifier{ServiceID: 0x1234, InstanceID: 1, MajorVer: 1, MinorVer: 2}
	if inst.Identifier().ServiceInstanceIdentifier != want {
		t.Errorf("unexpected identifier: %+v", inst.Identifier())
	}
	if inst.Address() != (message.IpcUnicastAddress{Domain: 7, Port: 9}) {
		t.Errorf("unexpected address: %+v", inst.Address())
	}
}
