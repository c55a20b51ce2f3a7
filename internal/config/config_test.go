package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "STOCK_CSV_PATH", "BOUNDARIES_PATH", "REGION_MAP_PATH",
		"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID", "STOCK_SHEET_RANGE", "SUMMARY_SHEET_RANGE", "KPI_HISTORY_SHEET_RANGE",
		"REPORT_CRON_SCHEDULE", "TIMEZONE", "WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_ALERT_RECIPIENT",
		"MONGODB_URI", "MONGODB_DB_NAME", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "data/example_stock.csv", cfg.Data.StockCSVPath)
	assert.Equal(t, "data/ukraine_regions.geojson", cfg.Data.BoundariesPath)
	assert.Equal(t, "Europe/Kyiv", cfg.Reporting.Timezone)
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("APP_PORT=9090\nREGION_MAP_PATH=maps/regions.yaml\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "maps/regions.yaml", cfg.Data.RegionMapPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Data:      DataConfig{StockCSVPath: "stock.csv", BoundariesPath: "regions.geojson"},
			Reporting: ReportingConfig{CronSchedule: "0 7 * * *", Timezone: "UTC"},
			MongoDB:   MongoDBConfig{DBName: "ppe"},
		}
	}

	require.NoError(t, base().Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())

	cfg := base()
	cfg.Data.BoundariesPath = ""
	assert.ErrorContains(t, cfg.Validate(), "BOUNDARIES_PATH")

	cfg = base()
	cfg.Sheets.SummaryRange = "Summary!A:G"
	assert.ErrorContains(t, cfg.Validate(), "GOOGLE_SHEETS_CREDENTIALS_PATH")

	cfg.Sheets.CredentialsPath = "creds.json"
	cfg.Sheets.SpreadsheetID = "sheet"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.WhatsApp.AlertRecipient = "380000000000"
	assert.ErrorContains(t, cfg.Validate(), "WHATSAPP_TOKEN")

	cfg = base()
	cfg.Data.StockCSVPath = ""
	assert.ErrorContains(t, cfg.Validate(), "STOCK_SHEET_RANGE")
}
