package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Info(msg string, fields ...interface{})  {}
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.warnings = append(l.warnings, msg) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) {}
func (l *recordingLogger) WithFields(map[string]interface{}) ports.Logger {
	return l
}

func TestChainReviewScrapesEnqueuesReviewWork(t *testing.T) {
	var gotASIN string
	var gotKind entity.ScrapeKind
	hook := chainReviewScrapes(func(asin string, kind entity.ScrapeKind, priority int) (string, error) {
		gotASIN = asin
		gotKind = kind
		return "item-1", nil
	}, &recordingLogger{})

	hook("B000TEST01")

	assert.Equal(t, "B000TEST01", gotASIN)
	assert.Equal(t, entity.ScrapeKindReview, gotKind)
}

func TestChainReviewScrapesLogsEnqueueFailure(t *testing.T) {
	logger := &recordingLogger{}
	hook := chainReviewScrapes(func(asin string, kind entity.ScrapeKind, priority int) (string, error) {
		return "", errors.New("queue is full")
	}, logger)

	hook("B000TEST01")

	require.Len(t, logger.warnings, 1)
	assert.Equal(t, "Failed to chain review scrape", logger.warnings[0])
}
