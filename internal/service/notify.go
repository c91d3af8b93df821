package service

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/pkg/errors"
)

// NotifyService sends email by SES.
type NotifyService struct {
	region string
	newSES adaptor.SESClientFactory
	sender string
}

// NewNotifyService is constructor of NotifyService
func NewNotifyService(region string, newSES adaptor.SESClientFactory, sender string) *NotifyService {
	return &NotifyService{
		region: region,
		newSES: newSES,
		sender: sender,
	}
}

// Send sends a text email to recipients.
func (x *NotifyService) Send(recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return errors.New("No recipient for notification")
	}

	client := x.newSES(x.region)
	output, err := client.SendEmail(&ses.SendEmailInput{
		Source: aws.String(x.sender),
		Destination: &ses.Destination{
			ToAddresses: aws.StringSlice(recipients),
		},
		Message: &ses.Message{
			Subject: &ses.Content{Data: aws.String(subject)},
			Body: &ses.Body{
				Text: &ses.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "Fail to send email to %v", recipients)
	}

	logger.WithField("messageID", aws.StringValue(output.MessageId)).Debug("Sent email")
	return nil
}
