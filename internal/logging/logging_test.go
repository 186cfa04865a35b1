package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/EgorLis/bitacbot/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		cfg       config.Log
		wantLevel zapcore.Level
	}{
		{config.Log{Level: "info", Format: "console"}, zapcore.InfoLevel},
		{config.Log{Level: "debug", Format: "json"}, zapcore.DebugLevel},
		{config.Log{Level: "warn"}, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.cfg)
		if err != nil {
			t.Fatalf("New(%+v) failed: %v", tt.cfg, err)
		}
		if !logger.Core().Enabled(tt.wantLevel) {
			t.Errorf("New(%+v): level %s not enabled", tt.cfg, tt.wantLevel)
		}
		if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
			t.Errorf("New(%+v): level below %s should be disabled", tt.cfg, tt.wantLevel)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(config.Log{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.Log{Level: "info", Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}
