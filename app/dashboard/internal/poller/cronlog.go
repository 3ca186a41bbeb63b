package poller

import (
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	log *log.Helper
}

// NewCronLogger 将 cron 的日志接到 kratos logger，Info 级别降为 Debug
func NewCronLogger(h *log.Helper) cron.Logger {
	return cronLogger{log: h}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(format(msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(format(msg, append(keysAndValues, "error", err)))
}

func format(msg string, kv []interface{}) string {
	var b strings.Builder
	b.WriteString("cron: ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
