// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger that writes info and debug lines to stdout and warnings
// and errors to stderr. Lines carry no timestamp or level, only "[name] message", so a
// logger obtained with Named("init") prints "[init] ...".
func New(stdout, stderr io.Writer, level zapcore.Level) *zap.SugaredLogger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeName:       bracketName,
		ConsoleSeparator: " ",
	})

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.WarnLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), low),
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), high),
	)
	return zap.New(core).Sugar()
}

func bracketName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + name + "]")
}
