package httputils

import (
	"net/http"
	"time"

	"github.com/autobrr/autobrr/pkg/sharedhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/contentdir/pkg/logger"
)

const defaultRetryMax = 3

// NewRetryableHttpClient returns a client that retries transient failures and
// waits on rl before every attempt. Retries are logged through log, or through
// the "http" logger when none is given.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log ...*logrus.Entry) *http.Client {
	l := logger.GetLogger("http")
	if len(log) > 0 && log[0] != nil {
		l = log[0]
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = defaultRetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = &leveledLogger{log: l}
	retryClient.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: sharedhttp.Transport,
	}
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if rl != nil {
			rl.Take()
		}

		if attempt > 0 {
			l.Debugf("Retrying %s %s (attempt %d)", req.Method, req.URL.Redacted(), attempt)
		}
	}

	return retryClient.StandardClient()
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *logrus.Entry
}

func (l *leveledLogger) fields(kv []interface{}) *logrus.Entry {
	e := l.log
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			e = e.WithField(k, kv[i+1])
		}
	}
	return e
}

func (l *leveledLogger) Error(msg string, kv ...interface{}) { l.fields(kv).Error(msg) }
func (l *leveledLogger) Info(msg string, kv ...interface{})  { l.fields(kv).Trace(msg) }
func (l *leveledLogger) Debug(msg string, kv ...interface{}) { l.fields(kv).Trace(msg) }
func (l *leveledLogger) Warn(msg string, kv ...interface{})  { l.fields(kv).Warn(msg) }
