package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"ms-invitations/internal/config"
	"ms-invitations/internal/logger"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// NewMailer picks the transport named by cfg.Provider. Unknown providers
// fall back to the no-op mailer.
func NewMailer(cfg config.MailConfig, log *logger.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "ses":
		awsCfg := aws.Config{
			Region: cfg.SESRegion,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(cfg.SESAccessKey, cfg.SESSecretKey, ""),
			),
		}
		return &sesMailer{
			client:      ses.NewFromConfig(awsCfg),
			fromAddress: cfg.FromAddress,
			fromName:    cfg.FromName,
			logger:      log,
		}, nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid mailer requires SENDGRID_API_KEY")
		}
		return &sendGridMailer{
			client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
			from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
			logger: log,
		}, nil
	case "noop", "":
		return &noopMailer{logger: log}, nil
	default:
		log.Warn("MAILER", fmt.Sprintf("Unknown email provider %q, using noop", cfg.Provider))
		return &noopMailer{logger: log}, nil
	}
}

type sesMailer struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	logger      *logger.Logger
}

func (s *sesMailer) Send(ctx context.Context, to, subject, html, text string) error {
	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	input := &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body:    &types.Body{},
		},
	}
	if html != "" {
		input.Message.Body.Html = &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")}
	}
	if text != "" {
		input.Message.Body.Text = &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	s.logger.Info("MAILER", fmt.Sprintf("Email sent via SES. MessageID: %s", aws.ToString(result.MessageId)))
	return nil
}

type sendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *logger.Logger
}

func (s *sendGridMailer) Send(ctx context.Context, to, subject, html, text string) error {
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), text, html)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}
	s.logger.Info("MAILER", fmt.Sprintf("Email sent via SendGrid (status %d)", resp.StatusCode))
	return nil
}

type noopMailer struct {
	logger *logger.Logger
}

func (n *noopMailer) Send(ctx context.Context, to, subject, html, text string) error {
	n.logger.Info("MAILER", fmt.Sprintf("Email would be sent (noop) to=%s subject=%q", to, subject))
	return nil
}
