package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"
)

// RequestID tags every request with an X-Request-ID, keeping one supplied by
// the client or a proxy.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: func() string { return uuid.NewString() },
    })
}

// AccessLog writes one logrus entry per request.  Server errors are logged
// at error level, client errors at warn and everything else at info.
func AccessLog(logger *logrus.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogStatus:    true,
        LogURI:       true,
        LogMethod:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            entry := logger.WithFields(logrus.Fields{
                "module":     "http",
                "request_id": v.RequestID,
                "method":     v.Method,
                "uri":        v.URI,
                "status":     v.Status,
                "latency_ms": float64(v.Latency) / float64(time.Millisecond),
                "remote_ip":  v.RemoteIP,
                "user_id":    userID(c),
            })
            switch {
            case v.Error != nil || v.Status >= 500:
                if v.Error != nil {
                    entry = entry.WithError(v.Error)
                }
                entry.Error("request failed")
            case v.Status >= 400:
                entry.Warn("request rejected")
            default:
                entry.Info("request")
            }
            return nil
        },
    })
}
