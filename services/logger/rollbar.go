package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/gleeworld/gleeworld/core"
)

// personer is implemented by values that identify the acting member, e.g. member.Member.
type personer interface {
	Person() core.Person
}

// RollbarLogger reports events to Rollbar and mirrors them to a standard logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected args: error, map[string]interface{}, a personer (the acting member)
func (l RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []interface{}) {
	var personSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	printed := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if p, ok := arg.(personer); ok {
			if !personSet {
				person := p.Person()
				rollbar.SetPerson(person.ID, person.Name, person.Email)
				personSet = true
			}
			continue
		}
		rbArgs = append(rbArgs, arg)
		printed = append(printed, arg)
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return rbArgs, printed
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("\t%+v", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, printed := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.print("DEBUG", msg, printed)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, printed := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.print("INFO", msg, printed)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, printed := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.print("WARN", msg, printed)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, printed := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.print("ERROR", msg, printed)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, printed := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	l.print("FATAL", msg, printed)
	rollbar.Wait()
	l.std.Fatal(msg)
}
