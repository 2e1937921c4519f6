package log

import (
	"github.com/cockroachdb/errors"
)

// StacktraceKey is the field holding the stack trace of a logged error.
const StacktraceKey = "stacktrace"

// marshalStack extracts the stack trace cockroachdb/errors recorded when err
// was created. It is installed as zerolog.ErrorStackMarshaler.
func marshalStack(err error) interface{} {
	if s := extractStacktrace(err); s != "" {
		return s
	}
	return nil
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
