package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
api:
  environment: test
  port: "9090"
  jwt_signing_key: secret
  admin_emails:
    - Admin@Example.com
gin:
  mode: test
postgres:
  host: db
  port: "5432"
ledger:
  payment_delay: 10ms
  submit_timeout: 1s
cache:
  ttl: 5s
intake:
  session_ttl: 1m
storage:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Cleanup(viper.Reset)
	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", conf.API.Port)
	assert.Equal(t, 10*time.Millisecond, conf.Ledger.PaymentDelay)
	assert.Equal(t, time.Second, conf.Ledger.SubmitTimeout)
	assert.Equal(t, "EDU", conf.Ledger.ReceiptPrefix)
	assert.Equal(t, 1200, conf.Storage.MaxWidth)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EDUDONOR_API_PORT", "7070")

	conf, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "7070", conf.API.Port)
}

func TestLoad_RejectsDelayLongerThanTimeout(t *testing.T) {
	body := sampleConfig + "\n"
	path := writeConfig(t, body)
	t.Setenv("EDUDONOR_LEDGER_PAYMENT_DELAY", "5s")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestIsAdminEmail(t *testing.T) {
	c := &APIConfig{AdminEmails: []string{"Admin@Example.com"}}
	assert.True(t, c.IsAdminEmail("admin@example.com"))
	assert.False(t, c.IsAdminEmail("donor@example.com"))
}
