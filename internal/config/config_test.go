package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/exam-seating/internal/database"
)

func TestLoad_SQLiteNeedsNoConnectionSettings(t *testing.T) {
    t.Setenv("DB_DRIVER", "sqlite")
    t.Setenv("SQLITE_PATH", "/tmp/seating.db")
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("BCRYPT_COST", "")

    cfg := Load()
    assert.Equal(t, database.SQLite, cfg.DBDriver)
    assert.Equal(t, 12, cfg.BcryptCost)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, database.SQLiteDSN("/tmp/seating.db"), cfg.DSN())
}

func TestLoad_Postgres(t *testing.T) {
    t.Setenv("DB_DRIVER", "postgres")
    t.Setenv("DB_USER", "app")
    t.Setenv("DB_PASS", "pw")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "5432")
    t.Setenv("DB_NAME", "seating")
    t.Setenv("DB_SSLMODE", "")
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")

    cfg := Load()
    assert.Equal(t, database.Postgres, cfg.DBDriver)
    assert.Equal(t, 15, cfg.AccessTTLMin)
    assert.Equal(t, "postgres://app:pw@db:5432/seating?sslmode=disable", cfg.DSN())
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
    dir := t.TempDir()
    file := filepath.Join(dir, ".env")
    require.NoError(t, os.WriteFile(file, []byte("SEATING_TEST_A=from-file\nSEATING_TEST_B=from-file\n"), 0o600))
    t.Setenv("APP_ENV", "dev")
    t.Setenv("SEATING_TEST_A", "from-env")
    t.Setenv("SEATING_TEST_B", "")
    require.NoError(t, os.Unsetenv("SEATING_TEST_B"))

    LoadDotEnv(file)
    assert.Equal(t, "from-env", os.Getenv("SEATING_TEST_A"))
    assert.Equal(t, "from-file", os.Getenv("SEATING_TEST_B"))
    require.NoError(t, os.Unsetenv("SEATING_TEST_B"))
}

func TestSubsystemDefaults(t *testing.T) {
    t.Setenv("RATE_LIMIT_LIMIT", "0")
    t.Setenv("RATE_LIMIT_WINDOW", "bogus")
    rl := LoadRateLimitConfig()
    assert.Equal(t, 1, rl.Limit)
    assert.Equal(t, time.Minute, rl.Window)

    t.Setenv("CACHE_TTL", "45s")
    assert.Equal(t, 45*time.Second, LoadCacheConfig().TTL)

    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
    assert.Equal(t, "amqp://u:p@mq:5672/", LoadQueueConfig().URL)

    t.Setenv("LOCK_WAIT", "500ms")
    assert.Equal(t, 500*time.Millisecond, LoadLockConfig().Wait)
}

func TestEnvBool(t *testing.T) {
    t.Setenv("SEATING_FLAG", "YES")
    assert.True(t, envBool("SEATING_FLAG", false))
    t.Setenv("SEATING_FLAG", "off")
    assert.False(t, envBool("SEATING_FLAG", true))
    t.Setenv("SEATING_FLAG", "maybe")
    assert.True(t, envBool("SEATING_FLAG", true))
}
