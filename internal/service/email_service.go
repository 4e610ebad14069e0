package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESClient is the part of the SES v2 API used to send mail
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     SESClient
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and drops every message.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, logger *zap.Logger) (*EmailService, error) {
	if fromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, logger), nil
}

// NewEmailServiceWithClient creates an enabled service around an existing client
func NewEmailServiceWithClient(client SESClient, fromEmail, fromName, appBaseURL string, logger *zap.Logger) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d5b; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { font-family: monospace; font-size: 24px; letter-spacing: 3px; text-align: center; padding: 12px; background: #fff; border: 1px dashed #2e7d5b; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e7d5b; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">%s</div>
		<div class="footer"><p>This is an automated email from Moneynest. Please do not reply.</p></div>
	</div>
</body>
</html>
`

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.logger.Debug("skipping email send (service disabled)", zap.String("kind", "welcome"), zap.String("to", toEmail))
		return nil
	}

	subject := "Welcome to Moneynest!"
	content := fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your Moneynest account is ready. Start by adding a few categories with monthly budgets,
			then record your income and expenses to see where your money goes.</p>
			<p>You can also create a family to share a ledger with the people you live with.</p>
			<p style="text-align: center;"><a href="%s/login" class="button">Get Started</a></p>`,
		html.EscapeString(toName), s.appBaseURL)
	htmlBody := fmt.Sprintf(emailLayout, "Welcome to Moneynest!", content)

	textBody := fmt.Sprintf(`Hi %s,

Your Moneynest account is ready. Start by adding a few categories with monthly budgets,
then record your income and expenses to see where your money goes.

You can also create a family to share a ledger with the people you live with.

Get started: %s/login

---
This is an automated email from Moneynest. Please do not reply.
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendInvitationEmail sends a family's invite code to toEmail
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, inviterName, familyName, inviteCode string) error {
	if !s.enabled {
		s.logger.Debug("skipping email send (service disabled)", zap.String("kind", "invitation"), zap.String("to", toEmail))
		return nil
	}

	subject := fmt.Sprintf("%s invited you to %s on Moneynest", inviterName, familyName)
	content := fmt.Sprintf(`
			<p>Hi,</p>
			<p>%s has invited you to join the <strong>%s</strong> family ledger on Moneynest.</p>
			<p>Sign in and enter this invite code to join:</p>
			<p class="code">%s</p>
			<p style="text-align: center;"><a href="%s/families/join" class="button">Join Family</a></p>`,
		html.EscapeString(inviterName), html.EscapeString(familyName), inviteCode, s.appBaseURL)
	htmlBody := fmt.Sprintf(emailLayout, "You're invited!", content)

	textBody := fmt.Sprintf(`Hi,

%s has invited you to join the %s family ledger on Moneynest.

Sign in and enter this invite code to join: %s

%s/families/join

---
This is an automated email from Moneynest. Please do not reply.
`, inviterName, familyName, inviteCode, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("to", toEmail), zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.logger.Info("email sent", fields...)
	return nil
}
