package lokiship

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingFields struct {
	yielded map[string]string
}

func (f failingFields) VisitFields(fn func(key, value string)) error {
	for k, v := range f.yielded {
		fn(k, v)
	}
	return fmt.Errorf("kv source broke mid-iteration")
}

func TestLabelPolicy_DerivedLabels(t *testing.T) {
	policy := labelPolicy{
		includeFramework: true,
		includeLevel:     true,
	}

	labels, err := policy.labels(LogRecord{Level: LevelWarn})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"logging_framework": "lokiship",
		"level":             "WARN",
	}, labels)
}

func TestLabelPolicy_StaticTagsOverlayDerived(t *testing.T) {
	policy := labelPolicy{
		includeLevel: true,
		static:       map[string]string{"level": "x", "service": "a"},
	}

	labels, err := policy.labels(LogRecord{Level: LevelError})
	assert.NoError(t, err)

	// user-specified tags take precedence over derived ones
	assert.Equal(t, "x", labels["level"])
	assert.Equal(t, "a", labels["service"])
}

func TestLabelPolicy_StaticPlusLevel(t *testing.T) {
	policy := labelPolicy{
		includeLevel: true,
		static:       map[string]string{"service": "a"},
	}

	labels, err := policy.labels(LogRecord{Level: LevelWarn})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"service": "a", "level": "WARN"}, labels)
}

func TestLabelPolicy_StructuredFieldsOverlayStatic(t *testing.T) {
	policy := labelPolicy{
		includeLevel: true,
		structured:   true,
		static:       map[string]string{"service": "a", "region": "eu"},
	}

	rec := LogRecord{
		Level:  LevelInfo,
		Fields: MapFields{"region": "us", "request_id": "42"},
	}

	labels, err := policy.labels(rec)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"service":    "a",
		"region":     "us",
		"request_id": "42",
		"level":      "INFO",
	}, labels)
}

func TestLabelPolicy_StructuredDisabledIgnoresFields(t *testing.T) {
	policy := labelPolicy{
		static: map[string]string{"service": "a"},
	}

	rec := LogRecord{
		Fields: MapFields{"request_id": "42"},
	}

	labels, err := policy.labels(rec)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"service": "a"}, labels)
}

func TestLabelPolicy_ExtractionErrorSurfaced(t *testing.T) {
	policy := labelPolicy{
		structured: true,
	}

	rec := LogRecord{
		Fields: failingFields{yielded: map[string]string{"a": "b"}},
	}

	_, err := policy.labels(rec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "structured fields")
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "TRACE", LevelTrace.String())
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}
