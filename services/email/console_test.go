package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleeworld/gleeworld/core"
	appfs "github.com/gleeworld/gleeworld/fs"
	"github.com/gleeworld/gleeworld/testutil"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := testutil.NewConfig()
	conf.FrontendBaseURL = "https://gleeworld.test"
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	ClearSentMessages()
	defer ClearSentMessages()

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Zora Neale", Address: "zora@spelman.test"}},
			Subject:      "Reunion",
			TemplateName: "alumnae_campaign",
			TemplateData: map[string]interface{}{"Name": "Zora Neale", "Message": "The 30th reunion is on.", "Sender": "Ann Admin"},
		},
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped: no recipients"},
		&core.EmailMessage{To: []mail.Address{{Address: "ada@spelman.test"}}, Subject: "Plain", BodyStr: "Rehearsal moved to 7pm."},
	)

	sent := SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "Dear Zora Neale,")
	assert.Contains(t, sent[0].TextContent, "The 30th reunion is on.")
	assert.Contains(t, sent[0].TextContent, "https://gleeworld.test")
	assert.NotEmpty(t, sent[0].HTMLContent)
	assert.Equal(t, "Rehearsal moved to 7pm.", sent[1].TextContent)
}

func Test_consoleService_compose(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf)).(*consoleServiceMock)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Ada", Address: "ada@spelman.test"}},
		Subject:     "Dues",
		TextContent: "Dues are due.",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "dues.csv", "text/csv"))

	body, err := svc.compose(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Dues")
	assert.Contains(t, body, `To: "Ada" <ada@spelman.test>`)
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "filename=dues.csv")
	assert.Contains(t, body, "Dues are due.")
}
