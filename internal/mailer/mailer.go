package mailer

import (
	"log"

	"gopkg.in/gomail.v2"
)

// Message 描述一封待发送的 HTML 邮件。
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer 是邮件投递的抽象，群发任务只依赖该接口。
type Mailer interface {
	Send(msg Message) error
}

// SMTPMailer 通过 gomail 走 SMTP 投递。
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer 创建 SMTP 投递器。
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send 投递单封邮件，每次调用建立一次连接。
func (m *SMTPMailer) Send(msg Message) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/html", msg.HTML)

	return m.dialer.DialAndSend(message)
}

// LogMailer 在未配置 SMTP 时使用，仅记录日志不真正发送。
type LogMailer struct{}

// Send 记录收件人与主题后直接返回成功。
func (LogMailer) Send(msg Message) error {
	log.Printf("mail (dry-run): to=%s subject=%q", msg.To, msg.Subject)
	return nil
}
