// Package email envía las notificaciones por correo del servicio.
package email

import (
	"crypto/tls"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// Sender es la interfaz para enviar emails. Implementada por SMTPSender.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano. El
	// destinatario recibe ambas versiones como multipart/alternative.
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass}
}

// Send envía un email con contenido HTML y texto plano.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("email.smtp"),
		logger.Any("host", s.Host),
		logger.Any("to", to),
	)
	log.Debug("sending email", logger.Any("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}

	if err := d.DialAndSend(m); err != nil {
		log.Error("email send failed", logger.Err(err))
		return err
	}
	log.Info("email sent")
	return nil
}
