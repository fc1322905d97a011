package config

import (
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// NewLogger builds the process logger.  Unknown levels fall back to info.
func NewLogger(level, format string) *logrus.Logger {
    logger := logrus.New()
    logger.SetOutput(os.Stdout)
    if strings.EqualFold(format, "text") {
        logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        logger.SetFormatter(&logrus.JSONFormatter{})
    }
    lvl, err := logrus.ParseLevel(level)
    if err != nil {
        lvl = logrus.InfoLevel
    }
    logger.SetLevel(lvl)
    return logger
}

// LogError records err with the module/function it came from plus optional data.
func LogError(logger *logrus.Logger, module, funcName, context string, data any, err error) {
    fields := logrus.Fields{
        "module":   module,
        "funcName": funcName,
        "context":  context,
    }
    if data != nil {
        fields["data"] = data
    }
    logger.WithFields(fields).Error(err.Error())
}
