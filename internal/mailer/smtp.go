package mailer

import (
	"context"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPSender sends through a plain SMTP relay, authenticating when a username is set.
type SMTPSender struct {
	addr string
	from *mail.Address
	auth smtp.Auth
}

func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parse from address: %w", err)
	}
	s := &SMTPSender{addr: host + ":" + strconv.Itoa(port), from: addr}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from.String())
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)

	return smtp.SendMail(s.addr, s.auth, s.from.Address, []string{msg.To}, []byte(b.String()))
}
