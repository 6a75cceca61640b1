package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig("DownloadService", Config{IsProduction: true, AppEnv: "production", Out: &buf})

	log.WithJob("abc").LogInfof("started %s", "job")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "DownloadService" {
		t.Errorf("Expected component 'DownloadService', got %v", entry["component"])
	}
	if entry["job_id"] != "abc" {
		t.Errorf("Expected job_id 'abc', got %v", entry["job_id"])
	}
	if entry["message"] != "started job" {
		t.Errorf("Expected message 'started job', got %v", entry["message"])
	}
}

func TestConsolePrefixesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig("Store", Config{AppEnv: "development", Out: &buf})

	log.LogWarn("evicted")

	if !strings.Contains(buf.String(), "[Store] evicted") {
		t.Errorf("Expected component prefix in %q", buf.String())
	}
}

func TestProductionSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig("Store", Config{IsProduction: true, AppEnv: "production", Out: &buf})

	log.LogDebugf("noise %d", 1)

	if buf.Len() != 0 {
		t.Errorf("Expected no debug output in production, got %q", buf.String())
	}
}
