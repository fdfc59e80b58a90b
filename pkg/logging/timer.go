package logging

import "time"

// TimedOperation helps measure operation duration
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: OrNop(logger),
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since StartTimer.
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation at debug level with its duration and returns it.
func (t *TimedOperation) End(extra ...Field) time.Duration {
	elapsed := t.Elapsed()
	t.logger.Debug(t.msg, t.with(elapsed, extra)...)
	return elapsed
}

// EndError logs the operation as a warning with its duration and error.
func (t *TimedOperation) EndError(err error, extra ...Field) time.Duration {
	elapsed := t.Elapsed()
	t.logger.Warn(t.msg, append(t.with(elapsed, extra), Error(err))...)
	return elapsed
}

func (t *TimedOperation) with(elapsed time.Duration, extra []Field) []Field {
	fields := make([]Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, extra...)
	return append(fields, Latency(elapsed))
}
