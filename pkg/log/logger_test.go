package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/examscore/pkg/errors"
)

func TestTestLoggerCapturesLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", ThresholdKey, 0.6)
	testLogger.Error("error message", fmt.Errorf("boom"), ModelNameKey, "Random Forest")

	require.NotEmpty(t, buffer.String())
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		assert.True(t, testLogger.ContainsMessage(msg), msg)
	}
	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField("error", "boom"))
	assert.True(t, testLogger.ContainsField(ModelNameKey, "Random Forest"))
}

func TestTestLoggerWithAndLevel(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	child := testLogger.With(ModelNameKey, "Decision Tree", ComponentKey, "trainer")
	child.Info("filtered")
	child.Warn("kept", CVScoreKey, 0.7)

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["message"])
	assert.Equal(t, "Decision Tree", entries[0][ModelNameKey])
	assert.Equal(t, "trainer", entries[0][ComponentKey])

	ctx := context.Background()
	assert.False(t, child.Enabled(ctx, LevelInfo))
	assert.True(t, child.Enabled(ctx, LevelError))
}

func TestTestLoggerConcurrentWrites(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := testLogger.With("worker", id)
			for i := 0; i < 25; i++ {
				l.Info("fold scored", "fold", i)
			}
		}(w)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 200)
}

func TestTestLoggerProvider(t *testing.T) {
	provider, logger := NewTestLoggerProvider(LevelInfo)

	provider.GetLoggerWithName("server").Info("listening", "addr", ":8080")
	provider.SetLevel(LevelError)
	provider.GetLogger().Warn("dropped")

	assert.True(t, logger.ContainsField(ComponentKey, "server"))
	assert.False(t, logger.ContainsMessage("dropped"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var vErr *errors.ValidationError
				assert.True(t, errors.As(err, &vErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelInfo, WithOutput(&buf))

	logger := provider.GetLoggerWithName("trainer").With(ModelNameKey, "Linear Regression")
	logger.Debug("hidden")
	logger.Info("Candidate fitted", R2ScoreKey, 0.88, SamplesKey, 800)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Candidate fitted", entry["message"])
	assert.Equal(t, "trainer", entry[ComponentKey])
	assert.Equal(t, "Linear Regression", entry[ModelNameKey])
	assert.Equal(t, 0.88, entry[R2ScoreKey])
	assert.Equal(t, 800.0, entry[SamplesKey])
}

func TestZerologLoggerErrorCarriesStackAndDetail(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelDebug, WithOutput(&buf))

	err := errors.NewArtifactMissingError("artifacts/model.pkl", fmt.Errorf("no such file"))
	provider.GetLogger().Error("Load failed", err, PathKey, "artifacts/model.pkl")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Contains(t, entry["error"], "artifacts/model.pkl")
	assert.Equal(t, "artifacts/model.pkl", entry[PathKey])
}

func TestZerologProviderSetLevelAndEnabled(t *testing.T) {
	var buf bytes.Buffer
	provider := NewZerologProvider(LevelInfo, WithOutput(&buf))

	ctx := context.Background()
	assert.False(t, provider.GetLogger().Enabled(ctx, LevelDebug))

	provider.SetLevel(LevelDebug)
	assert.True(t, provider.GetLogger().Enabled(ctx, LevelDebug))
}

func TestSetProviderRoutesWarnings(t *testing.T) {
	provider, logger := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer func() {
		SetProvider(NewZerologProvider(LevelInfo))
		errors.SetZerologWarnFunc(nil)
	}()

	errors.Warn(errors.NewFitFailedWarning("Decision Tree", "{max_depth: 4}", fmt.Errorf("empty fold")))

	assert.True(t, logger.ContainsField(ComponentKey, "warnings"))
	assert.True(t, logger.ContainsMessage("Decision Tree"))
	assert.NotNil(t, GetLoggerWithName("x"))
}
