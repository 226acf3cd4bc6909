package emailsvc

import (
	"io"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	logsvc "github.com/trezcool/campus/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(io.Discard, conf, logsvc.ComponentAPI)
	core.ParseEmailTemplates(conf, logger)
	ResetSentMessages()

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Mama", Address: "mama@test.cd"}},
			Subject:      "Overdue fee reminder",
			TemplateName: "fee_reminder",
			TemplateData: map[string]interface{}{
				"Name":        "Mama",
				"StudentName": "Hero",
				"Class":       "10A",
				"FeeType":     "Tuition",
				"Amount":      1000.0,
				"Remaining":   250.5,
				"DueDate":     "2026-01-31",
			},
		},
		&core.EmailMessage{ // no recipient
			Subject:     "Lost",
			TextContent: "nobody reads this",
		},
	)

	sent := SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "mama@test.cd", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Hello Mama")
	assert.Contains(t, sent[0].TextContent, "Tuition: 250.50 remaining out of 1000.00, due on 2026-01-31")
	assert.NotEmpty(t, sent[0].HTMLContent)

	ResetSentMessages()
	assert.Empty(t, SentMessages())
}
