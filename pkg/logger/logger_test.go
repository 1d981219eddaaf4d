package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLInitializesOnFirstUse(t *testing.T) {
	log = nil
	sugar = nil

	l := L()
	if l == nil {
		t.Fatal("L returned nil")
	}
	if L() != l {
		t.Error("L must return the same logger on repeated calls")
	}
	if S() == nil {
		t.Error("S returned nil after L initialized the global logger")
	}
	Sync()
}

func TestInitHonorsLevel(t *testing.T) {
	Init("trustbound-test", "dev", "debug")
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level was not applied")
	}

	Init("trustbound-test", "prod", "error")
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Error("error level should suppress info")
	}
}
