package utils

import (
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/rs/zerolog"
	"github.com/vgarvardt/gue/v5/adapter"
)

// GueLogAdapter routes gue pool logging into the app zerolog logger
type GueLogAdapter struct {
	fields []adapter.Field
}

func NewGueLoggerAdapter() *GueLogAdapter {
	return &GueLogAdapter{}
}

func (l *GueLogAdapter) Debug(msg string, fields ...adapter.Field) {
	l.append(goapp.Log.Debug(), fields).Msg(msg)
}

func (l *GueLogAdapter) Info(msg string, fields ...adapter.Field) {
	l.append(goapp.Log.Info(), fields).Msg(msg)
}

func (l *GueLogAdapter) Error(msg string, fields ...adapter.Field) {
	l.append(goapp.Log.Error(), fields).Str(zerolog.ErrorFieldName, msg).Send()
}

// With implements adapter.Logger
func (l *GueLogAdapter) With(fields ...adapter.Field) adapter.Logger {
	res := &GueLogAdapter{fields: make([]adapter.Field, 0, len(l.fields)+len(fields))}
	res.fields = append(res.fields, l.fields...)
	res.fields = append(res.fields, fields...)
	return res
}

func (l *GueLogAdapter) append(le *zerolog.Event, fields []adapter.Field) *zerolog.Event {
	for _, f := range l.fields {
		le = le.Interface(f.Key, f.Value)
	}
	for _, f := range fields {
		le = le.Interface(f.Key, f.Value)
	}
	return le
}
