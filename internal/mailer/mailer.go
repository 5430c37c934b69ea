package mailer

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer delivers the one-time codes of the authentication flows over SMTP.
type Mailer struct {
	config *mailerConfig
	dialer *gomail.Dialer
}

// NewMailer creates a Mailer from SMTP_* environment variables.
func NewMailer(logger *zerolog.Logger) *Mailer {
	cfg := newMailerConfig(logger)

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate Mailer configuration")
	}

	dialer := gomail.NewDialer(
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
	)

	return &Mailer{
		config: cfg,
		dialer: dialer,
	}
}

// SendOtpEmail sends a registration verification code.
func (m *Mailer) SendOtpEmail(to, code string) error {
	return m.send(to, "Email Verification Code", otpBody("Use this code to verify your email address.", code))
}

// SendPasswordResetOtpEmail sends a password reset code.
func (m *Mailer) SendPasswordResetOtpEmail(to, code string) error {
	return m.send(to, "Password Reset Code", otpBody("Use this code to reset your password.", code))
}

// SendFindUsernameOtpEmail sends a username recovery code.
func (m *Mailer) SendFindUsernameOtpEmail(to, code string) error {
	return m.send(to, "Username Recovery Code", otpBody("Use this code to recover your username.", code))
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer.DialAndSend(msg)
}

func otpBody(intro, code string) string {
	return fmt.Sprintf(`
		<p>Hi,</p>
		<p>%s</p>

		<h2 style="letter-spacing: 4px;">%s</h2>

		<p>This code will expire in 5 minutes.</p>
		<p>If you did not request this code, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>Walkmate Team</p>
	`, intro, code)
}

// mailerConfig holds SMTP configuration for sending emails.
type mailerConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

func newMailerConfig(logger *zerolog.Logger) *mailerConfig {
	cfg, err := env.ParseAs[mailerConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	return &cfg
}

func (c *mailerConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USERNAME environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASSWORD environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}
