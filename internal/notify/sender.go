package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"hrms/internal/config"
)

// Sender notifies an account holder about credential changes made by an
// administrator. The log sender is the development default.
type Sender interface {
	SendAccountCreated(ctx context.Context, toEmail, username string) error
	SendPasswordChanged(ctx context.Context, toEmail, username string) error
}

type LogSender struct{}

func (LogSender) SendAccountCreated(ctx context.Context, toEmail, username string) error {
	_ = ctx
	log.Printf("account created notification to=%s username=%s", toEmail, username)
	return nil
}

func (LogSender) SendPasswordChanged(ctx context.Context, toEmail, username string) error {
	_ = ctx
	log.Printf("password changed notification to=%s username=%s", toEmail, username)
	return nil
}

type SMTPSender struct {
	host string
	port int
	from string
}

func NewSender(cfg config.Config) Sender {
	switch cfg.NotifySender {
	case "smtp":
		return SMTPSender{host: cfg.SMTPHost, port: cfg.SMTPPort, from: cfg.NotifyFrom}
	default:
		return LogSender{}
	}
}

func (s SMTPSender) SendAccountCreated(ctx context.Context, toEmail, username string) error {
	_ = ctx
	body := "Subject: HR Console Account Created\r\n\r\nAn account (" + username + ") was created for you. Ask your administrator for the initial password.\r\n"
	return s.send(toEmail, body)
}

func (s SMTPSender) SendPasswordChanged(ctx context.Context, toEmail, username string) error {
	_ = ctx
	body := "Subject: HR Console Password Changed\r\n\r\nThe password for account " + username + " was reset by an administrator.\r\n"
	return s.send(toEmail, body)
}

func (s SMTPSender) send(toEmail, body string) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{toEmail}, []byte(body))
}
