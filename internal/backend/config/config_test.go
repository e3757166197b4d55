package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, 15*time.Minute, c.PresignExpiry)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr_grpc": ":7000",
		"secret_key": "from-file",
		"presign_expiry": "5m"
	}`), 0o600))

	got, err := LoadConfig([]string{"-c", path, "-s", "from-flag", "-t", "2h", "token", "u1"})
	require.NoError(t, err)

	want := defaults()
	want.EndpointAddrGRPC = ":7000"
	want.SecretKey = "from-flag"
	want.PresignExpiry = 5 * time.Minute
	want.AccessTokenValidityDuration = 2 * time.Hour
	assert.Empty(t, cmp.Diff(want, got))
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
	_, err = LoadConfig([]string{"-config", bad})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"-t", "forever"})
	assert.Error(t, err)
}
