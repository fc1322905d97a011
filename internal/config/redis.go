package config

// Redis backs three optional features: the token-bucket rate limiter, the
// browse response cache and the report generation lock.  All of them degrade
// to "off" when no client is available.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/bsm/redislock"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (used when host/port are not both set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// The returned client is nil if the server cannot be pinged within two seconds.
func NewRedisClient(logger *logrus.Logger) *redis.Client {
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        logger.WithFields(logrus.Fields{"module": "config", "addr": addr}).
            Warnf("redis unavailable, cache/rate limit/report lock disabled: %v", err)
        _ = client.Close()
        return nil
    }
    return client
}

// NewLocker wraps the client in a redislock client.  A nil client yields a
// nil locker, which callers treat as "no locking".
func NewLocker(client *redis.Client) *redislock.Client {
    if client == nil {
        return nil
    }
    return redislock.New(client)
}
