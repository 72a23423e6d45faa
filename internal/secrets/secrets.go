// Package secrets wraps AWS Secrets Manager behind the narrow surface the
// credential chain needs.
package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/ignite/ga4-loader/internal/config"
)

// api is the slice of the Secrets Manager client the store calls.
type api interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Store fetches secret payloads by id.
type Store struct {
	client api
}

// New builds a Store against the configured region using the default AWS
// credential chain (IAM role on ECS, profile locally).
func New(ctx context.Context, cfg config.SecretsConfig) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Store{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client api) *Store {
	return &Store{client: client}
}

// Get returns the current value of the secret. Binary secrets come back as
// the raw bytes stringified.
func (s *Store) Get(ctx context.Context, id string) (string, error) {
	return s.get(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
}

// GetVersion returns a specific version of the secret.
func (s *Store) GetVersion(ctx context.Context, id, version string) (string, error) {
	return s.get(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:  aws.String(id),
		VersionId: aws.String(version),
	})
}

func (s *Store) get(ctx context.Context, input *secretsmanager.GetSecretValueInput) (string, error) {
	out, err := s.client.GetSecretValue(ctx, input)
	if err != nil {
		return "", fmt.Errorf("fetching secret %s: %w", aws.ToString(input.SecretId), err)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}
