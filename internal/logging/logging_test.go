package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"matchreplay.ai/internal/config"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		cfg  config.Logging
		want zapcore.Level
	}{
		{config.Logging{Level: "debug", Format: "console"}, zapcore.DebugLevel},
		{config.Logging{Level: "warn", Format: "json"}, zapcore.WarnLevel},
		{config.Logging{Level: "loud", Format: "console"}, zapcore.InfoLevel},
	}
	for _, c := range cases {
		log, err := New(c.cfg)
		if err != nil {
			t.Fatalf("New(%+v): %v", c.cfg, err)
		}
		if !log.Core().Enabled(c.want) {
			t.Fatalf("%+v: level %v not enabled", c.cfg, c.want)
		}
		if c.want > zapcore.DebugLevel && log.Core().Enabled(c.want-1) {
			t.Fatalf("%+v: level below %v enabled", c.cfg, c.want)
		}
	}
}
