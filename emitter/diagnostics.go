package emitter

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// errorPlaceholder implements spec.md §7's "Impossible" row: on an
// internal-bug condition (null expression, unknown symbol) the emitter
// emits an `ERROR: <reason>` IL comment, logs a structured warning for a
// human operator, and returns a placeholder value so emission continues.
// It never panics — downstream compilation of the resulting IL is expected
// to fail, which is the documented contract.
func (e *Emitter) errorPlaceholder(reason string, fields logrus.Fields) string {
	e.b.Comment(fmt.Sprintf("ERROR: %s", reason))
	if e.log != nil {
		entry := e.log.WithField("function", e.fn.Name)
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry.Warn(reason)
	}
	return "0"
}

// todoPlaceholder implements the "Known limitation" row of spec.md §7.
func (e *Emitter) todoPlaceholder(reason string, fields logrus.Fields) string {
	e.b.Comment(fmt.Sprintf("TODO: %s", reason))
	if e.log != nil {
		entry := e.log.WithField("function", e.fn.Name)
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry.Info(reason)
	}
	return "0"
}
