package logger

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// ANSI color codes for the console encoder
const (
	colorReset  = "\x1b[0m"
	colorGray   = "\x1b[90m"
	colorCyan   = "\x1b[36m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
)

var bufferPool = buffer.NewPool()

// minimalEncoder renders calm single-line console output:
//
//	15:04:05 message key=value key=value
//
// Warnings and errors carry a colored level tag; info lines do not, which
// keeps the common case (progress during a multi-hour dump run) quiet.
type minimalEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newMinimalEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(cfg),
		pool:    bufferPool,
	}
}

func (e *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *minimalEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := e.pool.Get()

	line.AppendString(colorGray)
	line.AppendString(entry.Time.Format(time.TimeOnly))
	line.AppendString(colorReset)
	line.AppendByte(' ')

	switch entry.Level {
	case zapcore.WarnLevel:
		line.AppendString(colorYellow + "WARN" + colorReset + " ")
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		line.AppendString(colorRed + "ERROR" + colorReset + " ")
	case zapcore.DebugLevel:
		line.AppendString(colorGray + "debug" + colorReset + " ")
	}

	line.AppendString(entry.Message)

	for _, f := range fields {
		line.AppendByte(' ')
		line.AppendString(colorCyan)
		line.AppendString(f.Key)
		line.AppendString(colorReset)
		line.AppendByte('=')
		line.AppendString(fieldValue(f))
	}

	line.AppendString("\n")
	return line, nil
}

// fieldValue renders a zap field without the JSON machinery. Only the kinds
// the pipeline actually logs get first-class treatment; everything else
// falls back to the interface value.
func fieldValue(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return fmt.Sprintf("%d", f.Integer)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", uint64(f.Integer))
	case zapcore.BoolType:
		if f.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.DurationType:
		return time.Duration(f.Integer).String()
	case zapcore.Float64Type:
		return fmt.Sprintf("%g", math.Float64frombits(uint64(f.Integer)))
	case zapcore.Float32Type:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(f.Integer)))
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return err.Error()
		}
		return fmt.Sprintf("%v", f.Interface)
	default:
		return fmt.Sprintf("%v", f.Interface)
	}
}
