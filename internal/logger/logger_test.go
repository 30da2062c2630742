package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
	suite.True(logger.Core().Enabled(zapcore.InfoLevel))
	suite.False(logger.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestNewLoggerWithLevel() {
	testCases := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		suite.Run(tc.level, func() {
			logger, err := NewLoggerWithLevel(tc.level)
			suite.Require().NoError(err)
			suite.True(logger.Core().Enabled(tc.expected))
			if tc.expected > zapcore.DebugLevel {
				suite.False(logger.Core().Enabled(tc.expected - 1))
			}
		})
	}
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	err := logger.Sync()
	suite.NoError(err)
}

func (suite *LoggerTestSuite) TestNamed() {
	logger := NewNopLogger()
	child := logger.Named("bollinger")
	suite.NotNil(child.Logger)

	var nilLogger *Logger
	suite.NotNil(nilLogger.Named("x").Logger)
}

func (suite *LoggerTestSuite) TestLoggerWithFields() {
	logger := NewNopLogger()

	// Should not panic
	logger.With(zap.String("engine", "trend_following")).Info("tick")
}
