package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService sends account recovery mail through AWS SES.
type EmailService struct {
	ses  *awsses.Client
	from string
}

func NewEmailService(ctx context.Context, region, fromEmail string) (*EmailService, error) {
	if fromEmail == "" {
		return nil, errors.New("SES from address not set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &EmailService{
		ses:  awsses.NewFromConfig(cfg),
		from: fromEmail,
	}, nil
}

func (e *EmailService) send(ctx context.Context, to, subject, body string) error {
	_, err := e.ses.SendEmail(ctx, &awsses.SendEmailInput{
		Source: aws.String(e.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	})
	return err
}

// SendUsernameReminder mails the account's username to its recovery address.
func (e *EmailService) SendUsernameReminder(ctx context.Context, to, username string) error {
	body := fmt.Sprintf(
		"Hello,\n\nYour Lumen Journal username is: %s\n\nIf you did not request this reminder you can ignore this email.\n",
		username,
	)
	return e.send(ctx, to, "Your Lumen Journal username", body)
}

// SendPasswordResetCode mails a short-lived reset code to the recovery address.
func (e *EmailService) SendPasswordResetCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"Hello,\n\nYour Lumen Journal password reset code is: %s\n\nThe code expires in 15 minutes. If you did not request a reset you can ignore this email.\n",
		code,
	)
	return e.send(ctx, to, "Lumen Journal password reset", body)
}
