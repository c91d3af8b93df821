package handler

import (
	"sort"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/pkg/errors"
)

// DefaultRegion is used when AWS_REGION is not set.
const DefaultRegion = "us-east-1"

// EnvVars has all environment variables that should be given to Lambda function
type EnvVars struct {
	AwsRegion string `env:"AWS_REGION"`
	LogLevel  string `env:"LOG_LEVEL"`
	SentryDSN string `env:"SENTRY_DSN"`
	SentryEnv string `env:"SENTRY_ENVIRONMENT"`

	// Ingestion
	RawBucket   string `env:"RAW_BUCKET"`
	ErrorBucket string `env:"ERROR_BUCKET"`

	// Publisher and API
	DownstreamStream  string `env:"DOWNSTREAM_STREAM"`
	PartitionKeyQuery string `env:"PARTITION_KEY_QUERY"`

	// Batch transform
	CatalogDatabase    string `env:"CATALOG_DATABASE"`
	CatalogTable       string `env:"CATALOG_TABLE"`
	OutputPath         string `env:"OUTPUT_PATH"`
	QuarantinePath     string `env:"QUARANTINE_PATH"`
	RegisterPartitions string `env:"REGISTER_PARTITIONS"`
	PartitionTableName string `env:"PARTITION_TABLE_NAME"`

	// Stream job
	InputStream  string `env:"INPUT_STREAM"`
	OutputStream string `env:"OUTPUT_STREAM"`
	S3Bucket     string `env:"S3_BUCKET"`

	// Enrichment task
	SourceBucket string `env:"SOURCE_BUCKET"`
	SourceKey    string `env:"SOURCE_KEY"`
	TargetBucket string `env:"TARGET_BUCKET"`
	TargetKey    string `env:"TARGET_KEY"`

	// CSV converter
	DynamoDBTable   string `env:"DYNAMODB_TABLE"`
	DynamoDBHashKey string `env:"DYNAMODB_HASH_KEY"`
	DynamoDBSortKey string `env:"DYNAMODB_SORT_KEY"`
	SESSender       string `env:"SES_SENDER"`
	SESRecipient    string `env:"SES_RECIPIENT"`
}

// BindEnvVars loads environments variables and set them to EnvVars
func (x *EnvVars) BindEnvVars() error {
	if _, err := env.UnmarshalFromEnviron(x); err != nil {
		Logger.WithError(err).Error("Failed UnmarshalFromEviron")
		return errors.Wrap(err, "Fail to load environment variables")
	}

	if x.AwsRegion == "" {
		x.AwsRegion = DefaultRegion
	}
	return nil
}

// Recipients splits SES_RECIPIENT by comma.
func (x *EnvVars) Recipients() []string {
	var out []string
	for _, r := range strings.Split(x.SESRecipient, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// RequireEnv returns error if any value is empty. Keys are environment variable names.
func RequireEnv(vars map[string]string) error {
	var missing []string
	for name, value := range vars {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf("Required environment variable(s) not set: %s", strings.Join(missing, ", "))
	}
	return nil
}
