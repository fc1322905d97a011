package config

import "time"

// RateLimitConfig configures the Redis token bucket.  Capacity applies to the
// authenticated API; AuthCapacity is the smaller bucket used for the
// unauthenticated /v1/auth endpoints (login and register are the usual
// brute-force targets).
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    AuthCapacity   int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        AuthCapacity:   envInt("RATE_LIMIT_AUTH_CAPACITY", 10),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "csrrl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        cfg.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        cfg.RefillTokens = 1
        cfg.RefillInterval = every
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.AuthCapacity < 1 || cfg.AuthCapacity > cfg.Capacity {
        cfg.AuthCapacity = cfg.Capacity
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // keep buckets alive for at least a few refill cycles
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
}

// ForAuth returns a copy of the config sized for the auth endpoints.
func (c RateLimitConfig) ForAuth() RateLimitConfig {
    out := c
    out.Capacity = c.AuthCapacity
    out.Prefix = c.Prefix + ":auth"
    return out
}
