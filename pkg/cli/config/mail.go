package config

import (
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/service/mail"
	"github.com/stenolab/steno/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Mail holds CLI flags for the outbound email service
type Mail struct {
	apiKey   string
	sender   string
	endpoint string
}

// Flags returns CLI flags for mail configuration
func (m *Mail) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "resend-api-key",
			Usage:       "Resend API key for summary emails (emails disabled when empty)",
			Sources:     cli.EnvVars("STENO_RESEND_API_KEY"),
			Destination: &m.apiKey,
		},
		&cli.StringFlag{
			Name:        "mail-sender",
			Usage:       "Sender address for outbound emails",
			Value:       "Steno <notifications@steno.dev>",
			Sources:     cli.EnvVars("STENO_MAIL_SENDER"),
			Destination: &m.sender,
		},
		&cli.StringFlag{
			Name:        "resend-endpoint",
			Usage:       "Override the Resend API endpoint (testing only)",
			Sources:     cli.EnvVars("STENO_RESEND_ENDPOINT"),
			Destination: &m.endpoint,
		},
	}
}

// Configure creates the notifier from the configured flags. Returns nil
// when no API key is set; notification stages are skipped in that case.
func (m *Mail) Configure() interfaces.Notifier {
	if m.apiKey == "" {
		logging.Default().Info("Resend API key not configured, email notifications disabled")
		return nil
	}

	opts := []mail.Option{}
	if m.endpoint != "" {
		opts = append(opts, mail.WithEndpoint(m.endpoint))
	}

	logging.Default().Info("Email notifications enabled", "sender", m.sender)
	return mail.NewResend(m.apiKey, m.sender, opts...)
}
