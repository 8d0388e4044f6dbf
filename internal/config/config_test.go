package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:5001" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Scan.PagesPerScan != 10 {
		t.Errorf("pagesPerScan = %d, want 10", cfg.Scan.PagesPerScan)
	}
	if cfg.Scan.FastWorkers != 5 || cfg.Scan.AIWorkers != 5 {
		t.Errorf("workers = %d/%d, want 5/5", cfg.Scan.FastWorkers, cfg.Scan.AIWorkers)
	}
	if len(cfg.Patterns) != 3 {
		t.Errorf("default patterns = %d, want 3", len(cfg.Patterns))
	}
	if cfg.Chat.SystemPrompt == "" {
		t.Error("default system prompt is empty")
	}
}

func TestParseMergesOverDefaults(t *testing.T) {
	raw := []byte(`
server:
  addr: 0.0.0.0:8080
scan:
  pagesPerScan: 3
  aiWorkers: 2
chat:
  model: some-other-model
  timeoutSeconds: 5
patterns:
  - label: Redis
    pattern: (?i)redis
sources:
  - name: Example
    apiUrl: https://example.test?page={PAGE}
    dataRoot: hits
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Scan.PagesPerScan != 3 {
		t.Errorf("pagesPerScan = %d", cfg.Scan.PagesPerScan)
	}
	// Unset fields keep defaults.
	if cfg.Scan.FastWorkers != 5 {
		t.Errorf("fastWorkers = %d, want default 5", cfg.Scan.FastWorkers)
	}
	if cfg.Chat.Model != "some-other-model" {
		t.Errorf("chat model = %q", cfg.Chat.Model)
	}
	if got := cfg.Chat.Timeout().Seconds(); got != 5 {
		t.Errorf("chat timeout = %vs, want 5", got)
	}

	if len(cfg.Patterns) != 1 || cfg.Patterns[0].Label != "Redis" {
		t.Errorf("patterns = %+v, want the file's list to replace defaults", cfg.Patterns)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].DataRoot != "hits" {
		t.Errorf("sources = %+v", cfg.Sources)
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("server: [unclosed")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FEEDWATCHER_ADDR", "127.0.0.1:9999")
	t.Setenv("CHAT_API_KEY", "env-chat-key")
	t.Setenv("GITHUB_TOKEN", "env-gh-token")

	cfg, err := Parse([]byte("server:\n  addr: 1.2.3.4:80\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q, env must win over the file", cfg.Server.Addr)
	}
	if cfg.Chat.APIKey != "env-chat-key" {
		t.Errorf("chat api key = %q", cfg.Chat.APIKey)
	}
	if cfg.Scan.GitHubToken != "env-gh-token" {
		t.Errorf("github token = %q", cfg.Scan.GitHubToken)
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	if got := (ChatConfig{}).Timeout().Seconds(); got != 60 {
		t.Errorf("chat fallback = %vs, want 60", got)
	}
	if got := (EmbeddingConfig{}).Timeout().Seconds(); got != 30 {
		t.Errorf("embedding fallback = %vs, want 30", got)
	}
	if got := (ScanConfig{}).FetchTimeout().Seconds(); got != 20 {
		t.Errorf("fetch fallback = %vs, want 20", got)
	}
}
