package logger

import (
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ChildLog is the append-only per-child-account log. Every placement and
// cancellation attempt against a child lands here, in a day-wise folder
// named after the account, separate from the application log.
type ChildLog struct {
	log *logrus.Logger
}

func NewChildLog(dir, accountName string) *ChildLog {
	day := time.Now().Format("2006-01-02")
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	log.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(dir, day, accountName+".log"),
		MaxSize:    10,
		MaxBackups: 5,
		LocalTime:  true,
	})
	return &ChildLog{log: log}
}

// DiscardChildLog drops everything. Handy in tests.
func DiscardChildLog() *ChildLog {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &ChildLog{log: log}
}

func (c *ChildLog) Info(msg string) {
	c.log.Info(msg)
}

func (c *ChildLog) WithFields(fields logrus.Fields) *logrus.Entry {
	return c.log.WithFields(fields)
}

func (c *ChildLog) WithError(err error) *logrus.Entry {
	return c.log.WithError(err)
}
