package engine

import "github.com/sirupsen/logrus"

func (e *Engine) logEntry() *logrus.Entry {
	return e.log.WithComponent("engine")
}
