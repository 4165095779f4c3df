package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Acoustic.Mode != "mock" {
		t.Fatalf("expected default acoustic mode mock, got %v", cfg.Acoustic.Mode)
	}
	if cfg.Phonemizer.Mode != "dict" {
		t.Fatalf("expected default phonemizer mode dict, got %v", cfg.Phonemizer.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOP_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("GOP_BUS_USERNAME", "alice")
	t.Setenv("GOP_BUS_PASSWORD", "secret")
	t.Setenv("GOP_BUS_TLS_INSECURE", "true")
	t.Setenv("GOP_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("GOP_NODE_ID", "test-node")
	t.Setenv("GOP_NODE_ROLE", "runtime")
	t.Setenv("GOP_NODE_HEARTBEAT_INTERVAL_MS", "1500")
	t.Setenv("GOP_NODE_HEARTBEAT_TIMEOUT_MS", "5000")
	t.Setenv("GOP_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("GOP_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("GOP_EVENT_STORE_RETENTION_DAYS", "7")
	t.Setenv("GOP_EVENT_STORE_MAX_SESSIONS", "123")
	t.Setenv("GOP_EVENT_STORE_VACUUM_ON_START", "true")
	t.Setenv("GOP_ACOUSTIC_MODE", "exec")
	t.Setenv("GOP_ACOUSTIC_COMMAND", "./acoustic-cli")
	t.Setenv("GOP_ACOUSTIC_VOCAB_PATH", "./vocab.json")
	t.Setenv("GOP_PHONEMIZER_MODE", "goruut")
	t.Setenv("GOP_THRESHOLD_EXCELLENT", "-0.5")
	t.Setenv("GOP_THRESHOLD_GOOD", "-2.0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Node.ID != "test-node" {
		t.Fatalf("expected node id override")
	}
	if cfg.Node.HeartbeatInterval != 1500 {
		t.Fatalf("expected heartbeat interval override")
	}
	if cfg.Node.HeartbeatTimeout != 5000 {
		t.Fatalf("expected heartbeat timeout override")
	}
	if cfg.EventStore.Path != "./tmp.db" {
		t.Fatalf("expected event store path override")
	}
	if cfg.EventStore.RetentionMode != "persistent" {
		t.Fatalf("expected event store retention mode override")
	}
	if cfg.EventStore.RetentionDays != 7 {
		t.Fatalf("expected event store retention days override")
	}
	if cfg.EventStore.MaxSessions != 123 {
		t.Fatalf("expected event store max sessions override")
	}
	if !cfg.EventStore.VacuumOnStart {
		t.Fatalf("expected event store vacuum flag override")
	}
	if cfg.Acoustic.Mode != "exec" || cfg.Acoustic.Command != "./acoustic-cli" {
		t.Fatalf("expected acoustic exec override, got %+v", cfg.Acoustic)
	}
	if cfg.Phonemizer.Mode != "goruut" {
		t.Fatalf("expected phonemizer override, got %v", cfg.Phonemizer.Mode)
	}
	if cfg.GOP.ThresholdExcellent != -0.5 || cfg.GOP.ThresholdGood != -2.0 {
		t.Fatalf("expected gop threshold overrides, got %+v", cfg.GOP)
	}
}

func TestValidateRejectsBadThresholdOrdering(t *testing.T) {
	cfg := Default()
	cfg.GOP.ThresholdGood = -0.1
	cfg.GOP.ThresholdExcellent = -1.0
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error when threshold_good >= threshold_excellent")
	}
}

func TestValidateRequiresVocabPathUnlessMock(t *testing.T) {
	cfg := Default()
	cfg.Acoustic.Mode = "exec"
	cfg.Acoustic.Command = "./acoustic-cli"
	cfg.Acoustic.VocabPath = ""
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error when vocab_path is empty for non-mock mode")
	}
}
