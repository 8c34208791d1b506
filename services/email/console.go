package emailsvc

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

var (
	outbox   = make([]core.EmailMessage, 0)
	outboxMu sync.Mutex
)

// SentMessages returns a copy of the messages delivered by console services.
func SentMessages() []core.EmailMessage {
	outboxMu.Lock()
	defer outboxMu.Unlock()
	msgs := make([]core.EmailMessage, len(outbox))
	copy(msgs, outbox)
	return msgs
}

func ClearSentMessages() {
	outboxMu.Lock()
	outbox = outbox[:0]
	outboxMu.Unlock()
}

// consoleService writes emails to the standard logger instead of sending them.
type consoleService struct {
	from          mail.Address
	subjPrefix    string
	std           *log.Logger
	logger        core.Logger
	disableOutput bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config, std *log.Logger, logger core.Logger) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
		std:        std,
		logger:     logger,
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *consoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, msg.TemplateName))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	body, err := svc.compose(*msg)
	if err != nil {
		svc.logger.Error("composing email", err)
		return
	}
	if !svc.disableOutput {
		svc.std.Println(body)
	}
	outboxMu.Lock()
	outbox = append(outbox, *msg)
	outboxMu.Unlock()
}

func (svc *consoleService) compose(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)
	header := func(k, v string) { _, _ = fmt.Fprintf(body, "%s: %s\r\n", k, v) }

	header("From", svc.from.String())
	header("MIME-Version", "1.0")
	header("Date", core.NowFunc().Format("Mon, 02 Jan 2006 15:04:05 -0700"))
	header("Subject", svc.subjPrefix+msg.Subject)
	header("To", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		header("Cc", joinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		header("Bcc", joinAddresses(msg.Bcc))
	}

	outer := multipart.NewWriter(body)
	kind := "alternative"
	if msg.HasAttachments() {
		kind = "mixed"
	}
	header("Content-Type", fmt.Sprintf("multipart/%s; boundary=%s", kind, outer.Boundary()))
	body.WriteString("\r\n")

	alt := outer
	var altBuf *strings.Builder
	if msg.HasAttachments() {
		altBuf = new(strings.Builder)
		alt = multipart.NewWriter(altBuf)
	}

	parts := []struct{ ct, content string }{{"text/plain; charset=utf-8", msg.TextContent}}
	if msg.HTMLContent != "" {
		parts = append(parts, struct{ ct, content string }{"text/html; charset=utf-8", msg.HTMLContent})
	}
	for _, p := range parts {
		w, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ct}})
		if err != nil {
			return "", errors.Wrap(err, "creating "+p.ct+" part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", p.content)
	}

	if altBuf != nil {
		if err := alt.Close(); err != nil {
			return "", err
		}
		w, err := outer.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()}})
		if err != nil {
			return "", errors.Wrap(err, "creating multipart/alternative part")
		}
		_, _ = fmt.Fprint(w, altBuf.String())
		for _, at := range msg.Attachments {
			w, err = outer.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {"attachment; filename=" + at.Filename},
			})
			if err != nil {
				return "", errors.Wrap(err, "creating "+at.ContentType+" part")
			}
			_, _ = fmt.Fprintf(w, "%s\r\n", at.Content.String())
		}
	}
	if err := outer.Close(); err != nil {
		return "", err
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return strings.Join(out, ", ")
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock returns a silent console service that delivers synchronously.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			from:          conf.DefaultFromEmail,
			subjPrefix:    "[" + conf.AppName + "] ",
			std:           log.Default(),
			logger:        logger,
			disableOutput: true,
		},
	}
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		svc.deliver(msg)
	}
}
