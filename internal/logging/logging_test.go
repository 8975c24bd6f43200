package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{level: "debug", want: zapcore.DebugLevel},
		{level: "INFO", want: zapcore.InfoLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "", want: zapcore.InfoLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		logger, err := New(tt.level)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("level %q: expected error", tt.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("level %q: %v", tt.level, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Fatalf("level %q: expected %s enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Fatalf("level %q: expected %s disabled", tt.level, tt.want-1)
		}
	}
}
