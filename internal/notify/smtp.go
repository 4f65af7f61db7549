package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"adoro/internal/platform/config"
	stringsutil "adoro/pkg/platform/strings"
)

// MaintainerDirectory resolves the maintainer addresses to copy on
// registration traffic for a collection.
type MaintainerDirectory interface {
	MaintainerEmails(ctx context.Context, collectionName string) ([]string, error)
}

// SMTPNotifier sends registration mail over plain SMTP. Maintainer
// notifications set Reply-To to the registrant's address so maintainers can
// respond without the system ever storing that address.
type SMTPNotifier struct {
	addr        string
	host        string
	from        string
	auth        smtp.Auth
	maintainers MaintainerDirectory
}

// NewSMTP constructs an SMTP notifier from config.
func NewSMTP(cfg config.SMTP, maintainers MaintainerDirectory) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("smtp host and port are required")
	}

	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPNotifier{
		addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		host:        cfg.Host,
		from:        cfg.From,
		auth:        auth,
		maintainers: maintainers,
	}, nil
}

// RegistrationConfirmed mails the registrant their confirmation and deletion
// link, then notifies the collection's maintainers.
func (n *SMTPNotifier) RegistrationConfirmed(ctx context.Context, reg Registration) error {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your registration is confirmed.\n\n"+
			"Collection: %s\nPeriod: %s\n\n"+
			"Deletion link: %s\n\n"+
			"Important: You will need to provide your email address to confirm deletion.\n\n"+
			"Best regards",
		reg.Name, reg.CollectionName, reg.PeriodName, reg.DeletionLink,
	)
	subject := fmt.Sprintf("Registration Confirmation - %s", reg.CollectionName)
	if err := n.send(ctx, []string{reg.Email}, "", subject, body); err != nil {
		return err
	}

	emails, err := n.maintainerList(ctx, reg.CollectionName)
	if err != nil || len(emails) == 0 {
		return err
	}
	phone := ""
	if reg.Phone != "" {
		phone = "\nPhone: " + reg.Phone
	}
	mBody := fmt.Sprintf(
		"New participant registered:\n\n"+
			"Name: %s\nEmail: %s%s\nCollection: %s\nPeriod: %s\n\n"+
			"Note: Personal data is not stored in the system for privacy. "+
			"Replies go directly to the participant.",
		reg.Name, reg.Email, phone, reg.CollectionName, reg.PeriodName,
	)
	return n.send(ctx, emails, reg.Email,
		fmt.Sprintf("New Registration - %s", reg.CollectionName), mBody)
}

// RegistrationCancelled notifies the collection's maintainers.
func (n *SMTPNotifier) RegistrationCancelled(ctx context.Context, c Cancellation) error {
	emails, err := n.maintainerList(ctx, c.CollectionName)
	if err != nil || len(emails) == 0 {
		return err
	}
	body := fmt.Sprintf(
		"A participant has cancelled their registration:\n\n"+
			"Collection: %s\nPeriod: %s\n\n"+
			"The participant voluntarily cancelled using their deletion link.",
		c.CollectionName, c.PeriodName,
	)
	return n.send(ctx, emails, c.Email,
		fmt.Sprintf("Registration Cancelled - %s", c.CollectionName), body)
}

func (n *SMTPNotifier) maintainerList(ctx context.Context, collection string) ([]string, error) {
	if n.maintainers == nil {
		return nil, nil
	}
	emails, err := n.maintainers.MaintainerEmails(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("resolve maintainers: %w", err)
	}
	return stringsutil.DedupeAndTrimLower(emails), nil
}

func (n *SMTPNotifier) send(ctx context.Context, to []string, replyTo, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := []string{
		"From: " + n.from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
	}
	if replyTo != "" {
		headers = append(headers, "Reply-To: "+replyTo)
	}
	headers = append(headers, "MIME-Version: 1.0", "Content-Type: text/plain; charset=UTF-8")

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body
	return smtp.SendMail(n.addr, n.auth, n.from, to, []byte(raw))
}
