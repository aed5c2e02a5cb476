package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer defaultLogger.Logger.SetLevel(logrus.DebugLevel)

	assert.NoError(t, SetLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, defaultLogger.Logger.GetLevel())
	// 文件日志级别不受影响
	assert.Equal(t, logrus.InfoLevel, defaultLogger.fileLogger.GetLevel())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, logrus.WarnLevel, defaultLogger.Logger.GetLevel())
}
