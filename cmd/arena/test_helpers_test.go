package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"arena/internal/config"
	"arena/internal/matchstore"
	"arena/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	server     *testsupport.FakeServer
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	server := testsupport.NewFakeServer(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithServerURL(server.URL),
		testsupport.WithSyncFunction(server.SyncFunctionURL(), "svc-key"),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		server:     server,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// importMatch writes doc to a file and imports it through the CLI.
func importMatch(t *testing.T, env *cliTestEnv, doc matchDocument) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal match document: %v", err)
	}
	path := filepath.Join(env.baseDir, doc.Match.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write match document: %v", err)
	}
	if _, _, err := runCLI(t, env, "match", "import", path); err != nil {
		t.Fatalf("match import: %v", err)
	}
}

// sampleDocument returns a match with first- and second-half videos.
func sampleDocument(id string) matchDocument {
	return matchDocument{
		Match: testsupport.SampleMatch(id),
		Segments: []segmentDocument{
			{ID: id + "-first", VideoType: "first_half", FileURL: "https://videos.test/" + id + "/first.mp4"},
			{ID: id + "-second", VideoType: "second_half", FileURL: "https://videos.test/" + id + "/second.mp4"},
		},
	}
}

func openStore(t *testing.T, env *cliTestEnv) *matchstore.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, env.cfg)
}

func intRef(v int) *int { return &v }

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
