package mock

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/m-mizutani/eventlake/internal/adaptor"
)

// SESClient is mock of AWS SES SDK. It just stores SendEmail input.
type SESClient struct {
	Region string
	Input  []*ses.SendEmailInput
	Err    error
}

// Factory returns the mock itself. It can be used as adaptor.SESClientFactory.
func (x *SESClient) Factory(region string) adaptor.SESClient {
	x.Region = region
	return x
}

// SendEmail of mock stores input
func (x *SESClient) SendEmail(input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	x.Input = append(x.Input, input)
	if x.Err != nil {
		return nil, x.Err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mock-message-id")}, nil
}
