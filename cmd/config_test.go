// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const sampleConfig = `
defaults:
  timeout: 8s
  system: GCJ02
providers:
  opencellid:
    key: from-yaml
  gpsspg:
    oid: "1234"
    key: abcd
    system: bd09
  mylnikov:
    data: open
google:
  adc: false
  project: my-project
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.yaml", sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 8*time.Second, cfg.Defaults.Timeout)
	assert.Equal(t, spatial.GCJ02, cfg.Defaults.System)
	assert.Equal(t, spatial.BD09, cfg.Providers["gpsspg"].System)
	assert.Equal(t, "1234", cfg.Providers["gpsspg"].OID)
	assert.Equal(t, "open", cfg.Providers["mylnikov"].Data)
	assert.Equal(t, "my-project", cfg.Google.Project)

	empty, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Providers)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown provider", content: "providers:\n  gogle:\n    key: x\n", want: `unknown provider: "gogle"`},
		{name: "bad system", content: "defaults:\n  system: utm\n", want: "unknown coordinate system"},
		{name: "bad provider system", content: "providers:\n  google:\n    system: utm\n", want: "provider google"},
		{name: "bad yaml", content: "providers: [", want: "parsing config"},
		{name: "bad duration", content: "defaults:\n  timeout: soon\n", want: "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "config.yaml", tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestEnvOptions(t *testing.T) {
	env := map[string]string{
		"GPSSPG_OID":        "oid-env",
		"GPSSPG_KEY":        "key-env",
		"UNWIREDLABS_TOKEN": "tok-env",
	}
	getenv := func(k string) string { return env[k] }

	assert.Equal(t, &locator.Options{OID: "oid-env", Key: "key-env"}, envOptions("gpsspg", getenv))
	assert.Equal(t, &locator.Options{Token: "tok-env"}, envOptions("unwiredlabs", getenv))
	assert.Equal(t, &locator.Options{}, envOptions("google", getenv))
	assert.Equal(t, &locator.Options{}, envOptions("cellocation", getenv))
}

func TestEveryCredentialHasAnEnvironmentVariable(t *testing.T) {
	for _, name := range []string{"google", "gpsspg", "haoservice", "mozilla", "opencellid", "unwiredlabs", "yandex"} {
		o := envOptions(name, func(string) string { return "x" })
		assert.True(t, o.Key != "" || o.Token != "", name)
	}
}

func TestOptionsPrecedence(t *testing.T) {
	t.Setenv("OPENCELLID_KEY", "from-env")
	t.Setenv("GPSSPG_OID", "oid-env")
	t.Setenv("GOOGLE_API_KEY", "google-env")

	cfg, err := LoadConfig(writeFile(t, "config.yaml", sampleConfig))
	require.NoError(t, err)

	g := &globalOptions{config: cfg}
	ignore := cmpopts.IgnoreFields(locator.Options{}, "Logger", "HTTPClient")

	tests := []struct {
		provider string
		flags    *locator.Options
		want     *locator.Options
	}{
		{
			provider: "opencellid",
			want:     &locator.Options{Key: "from-yaml", Timeout: 8 * time.Second, System: spatial.GCJ02},
		},
		{
			provider: "opencellid",
			flags:    &locator.Options{Key: "from-flag", System: "WGS84"},
			want:     &locator.Options{Key: "from-flag", Timeout: 8 * time.Second, System: spatial.WGS84},
		},
		{
			provider: "gpsspg",
			flags:    &locator.Options{Timeout: time.Second},
			want:     &locator.Options{OID: "1234", Key: "abcd", Timeout: time.Second, System: spatial.BD09},
		},
		{
			provider: "google",
			want:     &locator.Options{Key: "google-env", Timeout: 8 * time.Second, System: spatial.GCJ02},
		},
	}

	for _, tt := range tests {
		got, err := g.options(context.Background(), tt.provider, tt.flags)
		require.NoError(t, err)

		if diff := cmp.Diff(tt.want, got, ignore); diff != "" {
			t.Errorf("options(%s) mismatch (-want +got):\n%s", tt.provider, diff)
		}
	}
}

func TestMergeExtra(t *testing.T) {
	dst := &locator.Options{Extra: map[string]string{"a": "1"}}
	merge(dst, &locator.Options{Extra: map[string]string{"b": "2"}})
	merge(dst, nil)

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, dst.Extra)
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("YANDEX_KEY", "")
	os.Unsetenv("YANDEX_KEY")

	g := &globalOptions{EnvFile: writeFile(t, ".env", "YANDEX_KEY=dotenv-key\n")}
	require.NoError(t, g.load(context.Background()))

	o, err := g.options(context.Background(), "yandex", nil)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", o.Key)
	assert.NotNil(t, o.Logger)
	assert.NotNil(t, o.HTTPClient)

	// A missing dotenv file is not an error.
	g = &globalOptions{EnvFile: filepath.Join(t.TempDir(), ".env")}
	assert.NoError(t, g.load(context.Background()))
}

func TestEngineFlags(t *testing.T) {
	f := &engineFlags{options: locator.Options{Key: "k"}, system: "Bd09"}

	o, err := f.resolve()
	require.NoError(t, err)
	assert.Equal(t, spatial.BD09, o.System)
	assert.Equal(t, "k", o.Key)

	f.system = "mercator"
	_, err = f.resolve()
	assert.Error(t, err)
}

func TestProviderArg(t *testing.T) {
	check := providerArg(1)
	cmd := &cobra.Command{}

	assert.NoError(t, check(cmd, []string{"opencellid"}))
	assert.ErrorContains(t, check(cmd, []string{"opencelid"}), `unknown provider: "opencelid"`)
	assert.Error(t, check(cmd, nil))
	assert.Error(t, check(cmd, []string{"google", "extra"}))
}
