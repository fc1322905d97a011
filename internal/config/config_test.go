package config

import (
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8080")
    t.Setenv("DB_USER", "csr")
    t.Setenv("DB_HOST", "localhost")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "csr")
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
    t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
    t.Setenv("BCRYPT_COST", "10")
}

func TestLoadDefaults(t *testing.T) {
    setRequired(t)
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://other/")
    t.Setenv("REPORT_LOCK_TTL", "not-a-duration")

    cfg := Load()
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, 15, cfg.AccessTTLMin)
    assert.Equal(t, "amqp://other/", cfg.RabbitURL)
    assert.Equal(t, 30*time.Second, cfg.ReportLockTTL)
    assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "abc")
    t.Setenv("X_DUR", "2m")
    assert.False(t, envBool("X_BOOL", true))
    assert.True(t, envBool("X_MISSING", true))
    assert.Equal(t, 7, envInt("X_INT", 7))
    assert.Equal(t, 2*time.Minute, envDur("X_DUR", time.Second))
    assert.Equal(t, "d", envStr("X_MISSING", "d"))
}

func TestRateLimitConfigNormalizes(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_AUTH_CAPACITY", "50")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 1, cfg.AuthCapacity)
    assert.Equal(t, 10*time.Second, cfg.TTL)

    auth := cfg.ForAuth()
    assert.Equal(t, cfg.AuthCapacity, auth.Capacity)
    assert.Equal(t, cfg.Prefix+":auth", auth.Prefix)
}

func TestCacheConfigMethods(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head ,")
    cfg := LoadCacheConfig()
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
    assert.Equal(t, 15*time.Second, cfg.TTL)
}

func TestNewLogger(t *testing.T) {
    l := NewLogger("debug", "text")
    assert.Equal(t, logrus.DebugLevel, l.GetLevel())
    assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)

    l = NewLogger("nonsense", "json")
    assert.Equal(t, logrus.InfoLevel, l.GetLevel())
    assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
