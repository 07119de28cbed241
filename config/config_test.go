package config

import (
	"os"
	"path/filepath"
	"testing"

	"stockdata/core"
)

func writeCfg(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeCfg(t, `
database:
  url: postgresql://u:p@localhost:5432/stocks
`)
	if err := Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if API.MaxRetries != core.DefRetryNum || API.RetryInterval != core.DefRetryWaitS {
		t.Fatalf("retry defaults: %+v", API)
	}
	if !Database.AutoCreate || Database.MaxPoolSize != 10 {
		t.Fatalf("db defaults: %+v", Database)
	}
	if Server.Addr != "0.0.0.0:5001" {
		t.Fatalf("server default: %+v", Server)
	}
	if Market(core.MarketCN) == nil || Market("jp") == nil {
		t.Fatal("Market accessor must never return nil")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeCfg(t, `
log_level: debug
database:
  url: postgresql://u:p@localhost:5432/stocks
  max_pool_size: "20"
api:
  max_retries: 5
  retry_interval: 3
markets:
  cn:
    day_codes: [sh600519, sz000001]
  hk:
    minute_codes: ["00700"]
`)
	if err := Load(path); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// quoted scalar should still land in the int field
	if Database.MaxPoolSize != 20 {
		t.Fatalf("weak typing: %+v", Database)
	}
	if API.MaxRetries != 5 || API.RetryInterval != 3 {
		t.Fatalf("api overlay: %+v", API)
	}
	cn := Market(core.MarketCN)
	if len(cn.DayCodes) != 2 || cn.DayCodes[0] != "sh600519" {
		t.Fatalf("cn codes: %+v", cn)
	}
	if len(Market(core.MarketHK).MinuteCodes) != 1 {
		t.Fatalf("hk codes: %+v", Market(core.MarketHK))
	}
}

func TestLoadMissingDatabase(t *testing.T) {
	path := writeCfg(t, "log_level: info\n")
	if err := Load(path); err == nil {
		t.Fatal("missing database url should fail validation")
	}
}

func TestLoadBadFile(t *testing.T) {
	if err := Load("/nonexistent/config.yml"); err == nil {
		t.Fatal("missing file should fail")
	}
}
