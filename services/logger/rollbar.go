package logsvc

import (
	"context"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

// RollbarLogger reports events to Rollbar and writes them to a logrus logger.
type RollbarLogger struct {
	std *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

// item is what one Rollbar report carries. The person is attached per report.
type item struct {
	person *rollbar.Person
	err    error
	extras map[string]interface{}
}

// newItem reads args in the expected fmt: error, map[string]interface{}, core.Person.
// Only the first error and the first person are kept.
func newItem(args []interface{}) item {
	it := item{extras: make(map[string]interface{})}
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if it.person == nil {
				it.person = &rollbar.Person{Id: a.ID, Username: a.Username, Email: a.Email}
			}
		case error:
			if it.err == nil {
				it.err = a
			}
		case map[string]interface{}:
			for k, v := range a {
				it.extras[k] = v
			}
		default:
			it.extras["extra"] = a
		}
	}
	return it
}

func (l RollbarLogger) report(level, msg string, args []interface{}) {
	it := newItem(args)
	ctx := context.Background()
	if it.person != nil {
		ctx = rollbar.NewPersonContext(ctx, it.person)
	}
	if it.err != nil {
		it.extras["message"] = msg
		rollbar.ErrorWithExtrasAndContext(ctx, level, it.err, it.extras)
		return
	}
	rollbar.MessageWithExtrasAndContext(ctx, level, msg, it.extras)
}

// entry turns args into logrus fields.
func (l RollbarLogger) entry(args []interface{}) *logrus.Entry {
	e := logrus.NewEntry(l.std)
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			e = e.WithError(a)
		case map[string]interface{}:
			e = e.WithFields(a)
		case core.Person:
			e = e.WithField("person_id", a.ID)
		default:
			e = e.WithField("extra", a)
		}
	}
	return e
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
	l.entry(args).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
	l.entry(args).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.entry(args).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.entry(args).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.entry(args).Fatal(msg)
}

// NewStdLogger builds the logrus logger behind RollbarLogger.
func NewStdLogger(conf *core.Config) *logrus.Logger {
	std := logrus.New()
	std.SetFormatter(&logrus.JSONFormatter{})
	std.SetLevel(logrus.InfoLevel)
	if conf.Debug {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		std.SetLevel(logrus.DebugLevel)
	}
	return std
}
