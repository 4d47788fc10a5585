package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger on top of zerolog. Every event carries
// the emitting component so console output can be filtered per package.
type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(writer io.Writer, level zerolog.Level) *ZerologAdapter {
	return &ZerologAdapter{
		logger: zerolog.New(writer).Level(level).With().Timestamp().Logger(),
	}
}

// With returns a child logger that stamps fields on every event.
func (z *ZerologAdapter) With(fields map[string]interface{}) *ZerologAdapter {
	return &ZerologAdapter{logger: z.logger.With().Fields(fields).Logger()}
}

func (z *ZerologAdapter) Debug(component, message string, fields map[string]interface{}) {
	emit(z.logger.Debug(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Info(component, message string, fields map[string]interface{}) {
	emit(z.logger.Info(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Warning(component, message string, fields map[string]interface{}) {
	emit(z.logger.Warn(), component, fields).Msg(message)
}

func (z *ZerologAdapter) Error(component string, err error, fields map[string]interface{}) {
	emit(z.logger.Error().Err(err), component, fields).Msg("operation failed")
}

func emit(event *zerolog.Event, component string, fields map[string]interface{}) *zerolog.Event {
	return event.Str("component", component).Fields(fields)
}
