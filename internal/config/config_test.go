package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  version: 1.2.0\n"))
	require.NoError(t, err)

	assert.Equal(t, "shomokh-report-engine", cfg.App.Name)
	assert.Equal(t, "1.2.0", cfg.App.Version)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"friday", "saturday"}, cfg.Calendar.ExcludedWeekdays)
	assert.Equal(t, "Asia/Riyadh", cfg.Calendar.Timezone)
	assert.Equal(t, "report_exports", cfg.Redis.ExportQueue)
	assert.Equal(t, 15*time.Minute, cfg.Reporting.DownloadURLTTL)
	assert.Equal(t, []string{"summary", "detailed"}, cfg.Workers.Snapshot.Formats)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("SHOMOKH_DB_PASSWORD", "s3cret")

	data := []byte(`
database:
  host: db.local
  port: 3306
  user: shomokh
  password: ${SHOMOKH_DB_PASSWORD}
  name: school
  parse_time: true
  loc: Asia/Riyadh
calendar:
  semester_start: "2025-08-24"
  semester_end: "2025-12-11"
  excluded_weekdays: [friday]
  holidays: ["2025-09-23"]
grading:
  weights:
    daily: 40
server:
  read_timeout: 15s
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, []string{"friday"}, cfg.Calendar.ExcludedWeekdays)
	assert.Equal(t, []string{"2025-09-23"}, cfg.Calendar.Holidays)
	assert.Equal(t, 40.0, cfg.Grading.Weights["daily"])
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t,
		"shomokh:s3cret@tcp(db.local:3306)/school?charset=utf8mb4&parseTime=true&loc=Asia%2FRiyadh&clientFoundRows=true",
		cfg.DatabaseDSN())
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	assert.Error(t, err)
}
