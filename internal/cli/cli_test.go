package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetOut(nil)
	if err := Execute(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if got := execute(t, "version"); got != "openinfo "+Version+"\n" {
		t.Errorf("Unexpected version output: %q", got)
	}
}

func TestConfigShow_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENINFO_STORAGE_DATABASE_PATH", "/srv/openinfo/records.db")

	got := execute(t, "config", "show")
	if !strings.Contains(got, "database_path: /srv/openinfo/records.db") {
		t.Errorf("Expected env override in config:\n%s", got)
	}
	if !strings.Contains(got, "download_dir: _downloads") {
		t.Errorf("Expected default download dir in config:\n%s", got)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".openinfo", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "www.openinfo.gov.bc.ca") {
		t.Errorf("Expected portal defaults, got:\n%s", data)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestReportPath(t *testing.T) {
	if got := reportPath("", "configured.json"); got != "configured.json" {
		t.Errorf("Expected configured path, got %s", got)
	}
	if got := reportPath("flag.json", "configured.json"); got != "flag.json" {
		t.Errorf("Expected flag path, got %s", got)
	}
}

func TestScrape_MarkupChangeExitsWithError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body><p>The search service is under maintenance.</p></body></html>")
	}))
	defer server.Close()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("OPENINFO_PORTAL_BASE_URL", server.URL)
	t.Setenv("OPENINFO_PORTAL_HOME_URL", server.URL+"/")
	t.Setenv("OPENINFO_STORAGE_DATABASE_PATH", filepath.Join(dir, "openinfo.db"))
	t.Setenv("OPENINFO_STORAGE_DOWNLOAD_DIR", filepath.Join(dir, "downloads"))
	t.Setenv("OPENINFO_RATE_LIMITING_REQUESTS_PER_SECOND", "0")

	rootCmd.SetArgs([]string{"scrape"})
	err := Execute()
	if err == nil {
		t.Fatal("Expected scrape to fail when the month selector is missing")
	}
	if !strings.Contains(err.Error(), "portal markup changed") {
		t.Errorf("Unexpected error: %v", err)
	}
}
