// ABOUTME: Rate-limited logging for repeated receiver failures
// ABOUTME: Logs the first failure immediately and summarizes suppressed repeats
package receiver

import (
	"fmt"
	"log"
	"time"
)

type limitedLogger struct {
	interval   time.Duration
	last       time.Time
	suppressed int
	now        func() time.Time
}

func newLimitedLogger(interval time.Duration) *limitedLogger {
	return &limitedLogger{interval: interval, now: time.Now}
}

// Printf logs unless a message was logged within the interval
func (l *limitedLogger) Printf(format string, args ...any) bool {
	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		l.suppressed++
		return false
	}

	msg := fmt.Sprintf(format, args...)
	if l.suppressed > 0 {
		msg = fmt.Sprintf("%s (%d similar messages suppressed)", msg, l.suppressed)
	}
	log.Print(msg)

	l.last = now
	l.suppressed = 0
	return true
}

// Reset lets the next message through immediately
func (l *limitedLogger) Reset() {
	l.last = time.Time{}
	l.suppressed = 0
}
