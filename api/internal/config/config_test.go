package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:quiz.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://learn.aakashitutor.com/quiz/{nid}/getlocalequestions", cfg.QuestionsURL)
	assert.Equal(t, 3*time.Minute, cfg.ExtractTimeout)
	ts, err := cfg.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{15 * time.Second, 30 * time.Second, 45 * time.Second}, ts)
	assert.Error(t, cfg.RequireBot())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:quiz.db")
	t.Setenv("PORT", "9000")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("OWNER_ID", "77")
	t.Setenv("AUTHORIZED_USER_IDS", "1, 2,3")
	t.Setenv("FETCH_TIMEOUTS", "1s,2s")
	t.Setenv("EXTRACT_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.EqualValues(t, 77, cfg.OwnerID)
	assert.NoError(t, cfg.RequireBot())
	ids, err := cfg.AuthorizedIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, 45*time.Second, cfg.ExtractTimeout)
}

func TestLoad_RejectsBadTemplates(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("QUESTIONS_URL", "https://example.com/quiz")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "questions_url")
}

func TestTimeouts_MustIncrease(t *testing.T) {
	c := &Config{FetchTimeouts: "30s,15s"}
	_, err := c.Timeouts()
	assert.Error(t, err)

	c.FetchTimeouts = "bogus"
	_, err = c.Timeouts()
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	c := &Config{CORSOrigins: "https://a.example, ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins())
}

func TestSafeDSNSummary(t *testing.T) {
	got := SafeDSNSummary("postgres://bot:secret@db:5432/quiz?sslmode=disable")
	assert.Equal(t, "host=db port=5432 db=quiz user=bot", got)
	assert.NotContains(t, got, "secret")
	assert.Equal(t, "dsn: file:quiz.db", SafeDSNSummary("file:quiz.db?_pragma=busy_timeout(5000)"))
}
