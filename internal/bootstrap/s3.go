package bootstrap

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/geovista/projects-backend/config"
)

// NewS3Client builds the object store client. With an explicit endpoint
// it uses static credentials and path-style addressing (minio and other
// dev stand-ins); otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	if cfg.Endpoint != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		return s3.New(s3.Options{
			Region:       cfg.Region,
			BaseEndpoint: awssdk.String(cfg.Endpoint),
			Credentials:  creds,
			UsePathStyle: true,
		}), nil
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}
	return s3.NewFromConfig(awsConfig), nil
}
