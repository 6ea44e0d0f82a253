package email

import (
	"concord-backend/internal/models"
	"fmt"
	"net/smtp"
	"net/url"
)

var (
	server            string
	address           string
	username          string
	password          string
	fullServerAddress string
	selfContained     bool
)

func Setup(cfg *models.ConfigFile, _fullServerAddress string) {
	server = cfg.SmtpServer
	address = fmt.Sprintf("%s:%d", cfg.SmtpServer, cfg.SmtpPort)
	username = cfg.SmtpUsername
	password = cfg.SmtpPassword
	fullServerAddress = _fullServerAddress
	selfContained = cfg.SelfContained

	if selfContained {
		go localhostListener()
	}
}

func sendEmail(email []string, subject string, message string) error {
	auth := smtp.PlainAuth("", username, password, server)

	msg := fmt.Appendf(nil, "To: %s\r\n", email[0])
	msg = fmt.Append(msg, "MIME-version: 1.0;\r\n")
	msg = fmt.Append(msg, "Content-Type: text/html; charset=\"UTF-8\";\r\n")
	msg = fmt.Appendf(msg, "Subject: %s\r\n", subject)
	msg = fmt.Append(msg, "\r\n")
	msg = fmt.Appendf(msg, "%s\r\n", message)

	return smtp.SendMail(address, auth, username, email, msg)
}

// SendEmailConfirmation mails the registration confirmation link, or in
// self-contained mode parks it on the local listener so registration
// works without an smtp server.
func SendEmailConfirmation(email string, username string, token string) error {
	link := fmt.Sprintf("%s/api/email/confirm?token=%s", fullServerAddress, url.QueryEscape(token))

	if selfContained {
		return storeManual(email, link)
	}

	subject := "Email confirmation"
	message := fmt.Sprintf(`
	<html>
		<body>
			<h2>Hello %s!</h2>
			<a href="%s">Confirm your email by clicking here</a>
		</body>
	</html>`,
		username, link)

	return sendEmail([]string{email}, subject, message)
}
