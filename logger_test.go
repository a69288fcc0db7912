package ocl

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLoggerNilRestoresSilentDefault(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	Logger().Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("configured logger produced no output: %q", buf.String())
	}

	SetLogger(nil)
	buf.Reset()
	Logger().Info("silent")
	if buf.Len() != 0 {
		t.Errorf("nil logger still wrote output: %q", buf.String())
	}
}

func TestNopHandlerDisabled(t *testing.T) {
	defer SetLogger(nil)
	SetLogger(nil)
	if Logger().Enabled(nil, slog.LevelError) {
		t.Error("default logger must report disabled at every level")
	}
}

type loggerDriver struct {
	fakeDriver
	logger *slog.Logger
}

func (d *loggerDriver) SetLogger(l *slog.Logger) { d.logger = l }

func TestNewContextPropagatesLoggerToDriver(t *testing.T) {
	defer SetLogger(nil)
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	SetLogger(l)

	drv := &loggerDriver{}
	if _, err := NewContext(drv, 1); err != nil {
		t.Fatal(err)
	}
	if drv.logger != l {
		t.Error("driver did not receive the configured logger")
	}
}
