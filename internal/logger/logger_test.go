package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger(false)
	suite.NoError(err)
	suite.NotNil(logger)
	suite.NotNil(logger.Logger)
	suite.False(logger.Core().Enabled(zapcore.DebugLevel))
	suite.True(logger.Core().Enabled(zapcore.InfoLevel))
}

func (suite *LoggerTestSuite) TestNewDebugLogger() {
	logger, err := NewLogger(true)
	suite.NoError(err)
	suite.True(logger.Core().Enabled(zapcore.DebugLevel))
}

func (suite *LoggerTestSuite) TestLoggerSync() {
	logger, err := NewLogger(false)
	suite.NoError(err)
	suite.NotNil(logger)

	// Sync may fail on stderr on some systems but must not panic
	_ = logger.Sync()
}

func (suite *LoggerTestSuite) TestLoggerSyncNilLogger() {
	logger := &Logger{Logger: nil}

	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestNopLogger() {
	logger := NewNopLogger()

	suite.False(logger.Core().Enabled(zapcore.ErrorLevel))
	logger.Error("dropped")
}

func (suite *LoggerTestSuite) TestNamed() {
	logger := NewNopLogger().Named("AAPL", "1m")

	suite.NotNil(logger.Logger)
	logger.Info("test message with fields")
}
