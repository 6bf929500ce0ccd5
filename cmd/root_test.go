package cmd

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestUpgradeCommand_RejectsMalformedVersion(t *testing.T) {
	cmd := createUpgradeCommand()
	err := cmd.RunE(cmd, []string{"two-point-oh"})
	if err == nil {
		t.Fatal("expected error for malformed version argument")
	}
	if !strings.Contains(err.Error(), "invalid target version") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSampleConfig_Renders(t *testing.T) {
	sample := sampleConfig{}
	sample.Database.Host = "localhost"
	sample.Database.Port = 3306
	sample.Backup.Compression = "gzip"

	out, err := yaml.Marshal(&sample)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	for _, key := range []string{"database:", "migrations:", "backup:", "storage:", "compression: gzip"} {
		if !strings.Contains(string(out), key) {
			t.Errorf("sample config missing %q", key)
		}
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := map[string]bool{"upgrade": false, "backup": false, "restore": false, "config": false, "version": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
