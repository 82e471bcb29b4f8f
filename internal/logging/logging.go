package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init настраивает глобальный logrus: JSON в production, текст в остальных окружениях.
func Init(level, env string) {
	logrus.SetOutput(os.Stdout)

	if env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown log level %q, falling back to info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// For возвращает логгер с полем component.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
