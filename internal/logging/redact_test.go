package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/locus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestRedactedString(t *testing.T) {
	f := RedactedString("api_key", "sk-1234567890abcdef")
	assert.Equal(t, "[REDACTED:19]", f.String)
}

func TestSecretField(t *testing.T) {
	f := Secret("authorization", config.Secret("Bearer abc"))
	assert.Equal(t, "authorization", f.Key)
	assert.Equal(t, "[REDACTED:10]", f.String)
}

func TestNewRedactingEncoder_Errors(t *testing.T) {
	base := newEncoder("json")

	_, err := NewRedactingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)

	_, err = NewRedactingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{strings.Repeat("a", maxPatternLen+1)}})
	assert.Error(t, err)

	enc, err := NewRedactingEncoder(base, RedactionConfig{Enabled: false, Patterns: []string{"("}})
	require.NoError(t, err, "disabled redaction ignores patterns")
	assert.NotNil(t, enc)
}

func TestRedactingEncoder_EncodeEntry(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	fields := []zapcore.Field{
		zap.String("Password", "hunter2"),
		zap.String("header", "Basic dXNlcjpwYXNzd29yZA=="),
		zap.Int("token", 12345),
		zap.String("capability", "greeter"),
	}
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m", Time: time.Unix(0, 0)}, fields)
	require.NoError(t, err)
	out := buf.String()

	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "dXNlcjpwYXNzd29yZA")
	assert.NotContains(t, out, "12345")
	assert.Contains(t, out, `"capability":"greeter"`)
	assert.Equal(t, "hunter2", fields[0].String, "caller's slice is not modified")
}

func TestRedactingEncoder_Clone(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	clone, ok := enc.Clone().(*RedactingEncoder)
	require.True(t, ok)
	assert.True(t, clone.sensitiveKey("SECRET"))
}
