package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/internal/testutil"
	logsvc "github.com/trezcool/edudesk/services/logger"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := testutil.NewConfig()
	conf.AppName = "EduDesk"
	svc := NewSendgridService(conf, nil, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)).(*sendgridService)

	t.Run("absence notification", func(t *testing.T) {
		m := svc.prepare(core.EmailMessage{
			To:           []mail.Address{{Name: "Ann Parent", Address: "ann@example.com"}},
			Bcc:          []mail.Address{{Address: "office@example.com"}},
			Subject:      "Absence: Tom",
			TemplateName: "absence",
			TextContent:  "Tom was absent.",
			HTMLContent:  "<p>Tom was absent.</p>",
		})

		require.Len(t, m.Personalizations, 1)
		p := m.Personalizations[0]
		assert.Equal(t, "[EduDesk] Absence: Tom", p.Subject)
		require.Len(t, p.To, 1)
		assert.Equal(t, "ann@example.com", p.To[0].Address)
		assert.Equal(t, "Ann Parent", p.To[0].Name)
		assert.Empty(t, p.CC)
		require.Len(t, p.BCC, 1)
		assert.Equal(t, "office@example.com", p.BCC[0].Address)

		assert.Equal(t, []string{"absence"}, m.Categories)
		require.Len(t, m.Content, 2)
		assert.Equal(t, "text/plain", m.Content[0].Type)
		assert.Equal(t, "text/html", m.Content[1].Type)
		assert.Equal(t, conf.Mail.DefaultFrom().Address, m.From.Address)
	})

	t.Run("plain text", func(t *testing.T) {
		m := svc.prepare(core.EmailMessage{
			To:          []mail.Address{{Address: "ann@example.com"}},
			Subject:     "hello",
			TextContent: "hi",
		})
		assert.Empty(t, m.Categories)
		require.Len(t, m.Content, 1)
		assert.Equal(t, "hi", m.Content[0].Value)
	})
}
