package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.NotEmpty(t, cfg.DatabaseDSN)
	require.True(t, cfg.SelfHosted)
}

func TestDecodedMasterKey(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	key, err := cfg.DecodedMasterKey()
	require.NoError(t, err)
	require.Len(t, key, 32)

	cfg.MasterKey = "zz"
	_, err = cfg.DecodedMasterKey()
	require.Error(t, err)

	cfg.MasterKey = "abcd"
	_, err = cfg.DecodedMasterKey()
	require.Error(t, err, "short keys must be rejected")
}

func TestParseJSONOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")

	overlay := map[string]any{
		"http_addr": ":9999",
		"smtp_port": 2525,
	}
	raw, err := json.Marshal(overlay)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	oldArgs := os.Args
	os.Args = []string{"test", "-c", path}
	defer func() { os.Args = oldArgs }()

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)

	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, 2525, cfg.SMTPPort)
	// untouched fields keep their defaults
	require.Equal(t, "localhost", cfg.SMTPHost)
}
