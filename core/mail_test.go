package core

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprint(append([]interface{}{msg}, args...)...))
}
func (l *recordingLogger) Fatal(msg string, args ...interface{}) { l.Error(msg, args...) }

func TestParseEmailTemplates(t *testing.T) {
	conf := NewTestConfig()
	logger := &recordingLogger{}
	ParseEmailTemplates(conf, logger)
	require.Empty(t, logger.errors)

	tests := []struct {
		name     string
		data     map[string]interface{}
		wantText string
	}{
		{
			name: "welcome",
			data: map[string]interface{}{
				"Name": "Hero", "Email": "hero@test.cd", "Role": "student", "Link": "http://front/reset/abc",
			},
			wantText: "sign in with hero@test.cd",
		},
		{
			name:     "password_reset",
			data:     map[string]interface{}{"Name": "Hero", "Link": "http://front/reset/abc", "Hours": 24},
			wantText: "http://front/reset/abc",
		},
		{
			name: "fee_reminder",
			data: map[string]interface{}{
				"Name":        "Mama",
				"StudentName": "Hero",
				"Class":       "10A",
				"FeeType":     "Tuition",
				"Amount":      1000.0,
				"Remaining":   250.5,
				"DueDate":     "2026-01-31",
			},
			wantText: "Hello Mama",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := &EmailMessage{TemplateName: tc.name, TemplateData: tc.data}
			require.NoError(t, msg.Render(conf))
			assert.Contains(t, msg.TextContent, tc.wantText)
			assert.NotEmpty(t, msg.HTMLContent)
			assert.True(t, msg.HasContent())
		})
	}

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "nope"}
		err := msg.Render(conf)
		assert.True(t, errors.Is(err, ErrUnknownTemplate))
		assert.False(t, msg.HasContent())
	})
}
