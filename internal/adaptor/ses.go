package adaptor

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// SESClientFactory is interface SESClient constructor
type SESClientFactory func(region string) SESClient

// SESClient is interface of AWS SDK SES
type SESClient interface {
	SendEmail(*ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// NewSESClient creates actual AWS SES SDK client
func NewSESClient(region string) SESClient {
	ssn := session.New(&aws.Config{Region: aws.String(region)})
	return ses.New(ssn)
}
