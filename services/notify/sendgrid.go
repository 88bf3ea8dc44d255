package notifysvc

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/scolarite/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	sendFunc = sendgrid.API // mockable
)

// EmailNotifier mails warnings and errors to the configured recipients through SendGrid.
type EmailNotifier struct {
	key        string
	from       *sgmail.Email
	to         []*sgmail.Email
	subjPrefix string
	logger     core.Logger
	// wait makes Notify send synchronously.
	wait bool
}

var _ core.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(conf *core.Config, logger core.Logger) *EmailNotifier {
	from := conf.DefaultFromEmail()
	to := make([]*sgmail.Email, 0, len(conf.NotifyRecipients))
	for _, addr := range conf.NotifyRecipients {
		if addr = core.CleanString(addr); addr != "" {
			to = append(to, sgmail.NewEmail("", addr))
		}
	}
	return &EmailNotifier{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		to:         to,
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		wait:       conf.TestMode,
	}
}

func (n *EmailNotifier) Notify(kind core.NotificationKind, message string) {
	if len(n.to) == 0 || (kind != core.NotifyWarning && kind != core.NotifyError) {
		return
	}
	if n.wait {
		n.send(kind, message)
		return
	}
	go n.send(kind, message)
}

func (n *EmailNotifier) prepare(kind core.NotificationKind, message string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = n.subjPrefix + strings.ToUpper(string(kind)) + ": " + firstLine(message)
	p.AddTos(n.to...)

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", message))
	return m
}

func (n *EmailNotifier) send(kind core.NotificationKind, message string) {
	req := sendgrid.GetRequest(n.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.prepare(kind, message))

	res, err := sendFunc(req)
	if err != nil {
		n.logger.Error(fmt.Sprintf("sending notification email: %v", err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		n.logger.Error(fmt.Sprintf("sending notification email - status: %d - Body: %s", res.StatusCode, res.Body))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
