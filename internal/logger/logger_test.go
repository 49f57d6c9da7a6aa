package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env       string
		level     string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{env: "production", wantLevel: zapcore.InfoLevel},
		{env: "prod", level: "warn", wantLevel: zapcore.WarnLevel},
		{env: "development", wantLevel: zapcore.DebugLevel},
		{env: "", level: "error", wantLevel: zapcore.ErrorLevel},
		{env: "staging", wantErr: true},
		{env: "dev", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := New(tt.env, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
