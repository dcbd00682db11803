package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/codeauth/codeauth-backend/internal/domain/verification"
	"gitlab.com/codeauth/codeauth-backend/pkg/errorx"
	"gitlab.com/codeauth/codeauth-backend/pkg/logging"
	"gitlab.com/codeauth/codeauth-backend/pkg/otelx"
)

// SNSAPI is the subset of *sns.Client the publisher needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClientArgs struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for localstack. Static
	// credentials are used when both keys are set.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func NewSNSClient(ctx context.Context, args SNSClientArgs) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(args.Region),
	}
	if args.AccessKeyID != "" && args.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(args.AccessKeyID, args.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errorx.Wrap(err, "notify.NewSNSClient")
	}

	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		if args.Endpoint != "" {
			o.BaseEndpoint = aws.String(args.Endpoint)
		}
	}), nil
}

type SNSPublisher struct {
	tracer   trace.Tracer
	client   SNSAPI
	topicARN string
}

func NewSNSPublisher(client SNSAPI, topicARN string, t trace.Tracer) (*SNSPublisher, error) {
	if client == nil {
		return nil, errors.New("sns client cannot be nil")
	}
	if topicARN == "" {
		return nil, errors.New("sns topic arn is required")
	}
	if t == nil {
		t = tracer
	}
	return &SNSPublisher{tracer: t, client: client, topicARN: topicARN}, nil
}

func (p *SNSPublisher) Publish(ctx context.Context, email, code string) error {
	const op = "notify.SNSPublisher.Publish"
	ctx, span := p.tracer.Start(ctx, "SNSPublisher.Publish", trace.WithSpanKind(trace.SpanKindProducer), trace.WithAttributes(
		attribute.String("user.email", logging.RedactEmail(email)),
	))
	defer span.End()

	payload, err := json.Marshal(verification.NewCodeIssued(ctx, email, code))
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to marshal event")
		return errorx.Wrap(err, op)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"email": {
				DataType:    aws.String("String"),
				StringValue: aws.String(email),
			},
		},
	})
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to publish to sns")
		return errorx.Wrap(err, op)
	}
	if out != nil && out.MessageId != nil {
		span.SetAttributes(attribute.String("sns.message_id", *out.MessageId))
	}

	return nil
}
