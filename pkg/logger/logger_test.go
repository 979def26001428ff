package logger

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"profilesync/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level: "info",
		File:  filepath.Join(t.TempDir(), "logs", "run.log"),
	}

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() with file output failed: %v", err)
	}
	if logger == nil {
		t.Fatal("New() returned nil logger")
	}
	logger.Info("file output works")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	tests := []struct {
		name string
		log  func(string)
	}{
		{"Debug", logger.Debug},
		{"Info", logger.Info},
		{"Warn", logger.Warn},
		{"Error", logger.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log(tt.name + " message")
			if !strings.Contains(buf.String(), tt.name+" message") {
				t.Errorf("%s message not found in output", tt.name)
			}
		})
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithField("nickname", "amna").Info("profile fetched")

	output := buf.String()
	if !strings.Contains(output, "profile fetched") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"nickname":"amna"`) {
		t.Error("Field not found in output")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithFields(map[string]interface{}{
		"mode":      "targets",
		"processed": 42,
		"done":      true,
	}).Info("run finished")

	output := buf.String()
	if !strings.Contains(output, `"mode":"targets"`) {
		t.Error("String field not found in output")
	}
	if !strings.Contains(output, `"processed":42`) {
		t.Error("Int field not found in output")
	}
	if !strings.Contains(output, `"done":true`) {
		t.Error("Bool field not found in output")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	if logger.WithError(nil) != Logger(logger) {
		t.Error("WithError(nil) should return the same logger")
	}

	logger.WithError(&testError{msg: "fetch timed out"}).Error("fetch failed")

	output := buf.String()
	if !strings.Contains(output, "fetch failed") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, "fetch timed out") {
		t.Error("Error message not found in output")
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.
		WithField("mode", "online").
		WithField("nickname", "amna").
		WithFields(map[string]interface{}{"row": 7}).
		Info("record reconciled")

	output := buf.String()
	for _, want := range []string{`"mode":"online"`, `"nickname":"amna"`, `"row":7`} {
		if !strings.Contains(output, want) {
			t.Errorf("%s not found in output", want)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if GetLogger() == nil {
		t.Error("GetLogger() returned nil")
	}

	// Convenience functions and helpers must not panic
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	WithField("key", "value").Info("with field")
	WithError(&testError{msg: "test"}).Error("with error")
	LogWrite("Profiles", "append", true, nil)
	LogRateLimit("/users/amna/", 30)
	LogSyncProgress("targets", 3, 10)
	LogOutcome("amna", "updated", []string{"CITY"})
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithField("k", "v").WithError(&testError{msg: "x"}).Info("ignored")
	if logger.GetZerolog() != nil {
		t.Error("Nop logger should have no underlying zerolog instance")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
