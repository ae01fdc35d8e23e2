package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, dir, cfg.GetConfigDir())
	require.Equal(t, filepath.Join(dir, SettingsFile), cfg.GetSettingsPath())
	require.Equal(t, DefaultTimeout, cfg.GetTimeout())
	require.Equal(t, DefaultTimeout, cfg.GetLegacyTimeout())
	require.Equal(t, "preload/"+BuildVersion, cfg.GetUserAgent())
	require.Equal(t, DefaultConcurrency, cfg.GetConcurrency())
	require.Nil(t, cfg.GetOrigin())
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	data := `{
  "timeout": "2s",
  "legacy_timeout": "500ms",
  "user_agent": "agent/1",
  "origin": "https://app.example:8443",
  "concurrency": 9
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(data), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.GetTimeout())
	require.Equal(t, 500*time.Millisecond, cfg.GetLegacyTimeout())
	require.Equal(t, "agent/1", cfg.GetUserAgent())
	require.Equal(t, "https://app.example:8443", cfg.GetOrigin().String())
	require.Equal(t, 9, cfg.GetConcurrency())
}

func TestLegacyTimeoutFollowsTimeout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(`{"timeout":"3s"}`), 0644))
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.GetLegacyTimeout())
}

func TestLoadInvalidSettings(t *testing.T) {
	for name, data := range map[string]string{
		"syntax":   `{"timeout":`,
		"duration": `{"timeout":"soon"}`,
		"number":   `{"timeout":8}`,
		"origin":   `{"origin":"/relative"}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(data), 0644))
			_, err := Load(dir)
			require.Error(t, err)
		})
	}
}

func TestCheckoutAndFreeze(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	w := cfg.Checkout()
	w.SetTimeout(time.Second)
	w.SetTimeout(0)
	w.SetConcurrency(2)
	w.SetUserAgent("")
	require.NoError(t, w.SetOrigin("http://page.example"))
	require.Error(t, w.SetOrigin("page.example"))
	w.Freeze()

	require.Equal(t, time.Second, cfg.GetTimeout())
	require.Equal(t, 2, cfg.GetConcurrency())
	require.Equal(t, DefaultUserAgent(), cfg.GetUserAgent())
	require.Equal(t, "http://page.example", cfg.GetOrigin().String())

	require.Panics(t, func() { cfg.Checkout() })
	require.Panics(t, func() { w.SetConcurrency(1) })
}

func TestCheckoutOnce(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	cfg.Checkout()
	require.Panics(t, func() { cfg.Checkout() })
}

func TestGetOriginReturnsCopy(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, cfg.Checkout().SetOrigin("http://page.example"))

	u := cfg.GetOrigin()
	u.Host = "other.example"
	require.Equal(t, "page.example", cfg.GetOrigin().Host)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg, err := Load(dir)
	require.NoError(t, err)

	w := cfg.Checkout()
	w.SetTimeout(1500 * time.Millisecond)
	w.SetConcurrency(3)
	require.NoError(t, w.SetOrigin("https://app.example"))
	require.NoError(t, w.Save())

	data, err := os.ReadFile(filepath.Join(dir, SettingsFile))
	require.NoError(t, err)
	require.Contains(t, string(data), `"timeout": "1.5s"`)
	_, err = os.Stat(filepath.Join(dir, SettingsFile+".tmp"))
	require.True(t, os.IsNotExist(err))

	reloaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg.Settings(), reloaded.Settings())
}
