package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/hm-skb/skb/internal/utils"
)

const resourceNotFound = "ResourceNotFoundException"

// SecretsManagerAPI is the subset of the secretsmanager client used to fetch the key.
type SecretsManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads a PEM key stored as a secret string or binary.
type SecretsManagerSource struct {
	api      SecretsManagerAPI
	secretID string
}

// NewSecretsManagerSource builds a source from the default AWS credential chain.
func NewSecretsManagerSource(ctx context.Context, region, secretID string) (*SecretsManagerSource, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity: load aws config: %w", err)
	}

	return NewSecretsManagerSourceWithAPI(secretsmanager.NewFromConfig(cfg), secretID), nil
}

func NewSecretsManagerSourceWithAPI(api SecretsManagerAPI, secretID string) *SecretsManagerSource {
	return &SecretsManagerSource{api: api, secretID: secretID}
}

func (s *SecretsManagerSource) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	slog.Debug("identity fetch key", "source", "secretsmanager", "secret", utils.MaskSecret(s.secretID))

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == resourceNotFound {
			return nil, fmt.Errorf("%w: secret %s", ErrKeyNotFound, s.secretID)
		}
		return nil, fmt.Errorf("identity: get secret %s: %w", s.secretID, err)
	}

	switch {
	case out.SecretString != nil:
		return ParsePrivateKey([]byte(*out.SecretString))
	case out.SecretBinary != nil:
		return ParsePrivateKey(out.SecretBinary)
	default:
		return nil, fmt.Errorf("%w: secret %s is empty", ErrKeyNotFound, s.secretID)
	}
}
