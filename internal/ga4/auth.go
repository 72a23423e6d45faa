package ga4

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
)

// scopeReadonly is the only scope the loader needs.
const scopeReadonly = "https://www.googleapis.com/auth/analytics.readonly"

// SecretGetter fetches a secret payload by id. Satisfied by the secrets
// store client; nil disables the secret-store step of the chain.
type SecretGetter interface {
	Get(ctx context.Context, id string) (string, error)
}

// jwtTokenSource builds a TokenSource from service-account JSON. Variable so
// tests can swap in a stub without real key material.
var jwtTokenSource = func(ctx context.Context, credentialsJSON []byte) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, scopeReadonly)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx), nil
}

// Credentials resolves a TokenSource through the credential chain, in order:
// inline JSON from config, a credentials file path, the secret store, and
// finally the GOOGLE_APPLICATION_CREDENTIALS file. The first source that
// yields parseable service-account JSON wins. If every source fails the
// returned error is an auth failure listing each attempt.
func Credentials(ctx context.Context, cfg config.GA4Config, secretID string, secrets SecretGetter) (oauth2.TokenSource, error) {
	var attempts []string

	if cfg.CredentialsJSON != "" {
		ts, err := jwtTokenSource(ctx, []byte(cfg.CredentialsJSON))
		if err == nil {
			logger.Info("credentials resolved", "method", "inline")
			return ts, nil
		}
		attempts = append(attempts, "inline credentials_json: "+err.Error())
	}

	if cfg.CredentialsFile != "" {
		ts, err := tokenSourceFromFile(ctx, cfg.CredentialsFile)
		if err == nil {
			logger.Info("credentials resolved", "method", "file", "path", cfg.CredentialsFile)
			return ts, nil
		}
		attempts = append(attempts, fmt.Sprintf("credentials file %s: %v", cfg.CredentialsFile, err))
	}

	if secrets != nil && secretID != "" {
		payload, err := secrets.Get(ctx, secretID)
		if err == nil {
			ts, jerr := jwtTokenSource(ctx, []byte(payload))
			if jerr == nil {
				logger.Info("credentials resolved", "method", "secret_store", "secret_id", secretID)
				return ts, nil
			}
			err = jerr
		}
		attempts = append(attempts, fmt.Sprintf("secret %s: %v", secretID, err))
	}

	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" && path != cfg.CredentialsFile {
		ts, err := tokenSourceFromFile(ctx, path)
		if err == nil {
			logger.Info("credentials resolved", "method", "application_default", "path", path)
			return ts, nil
		}
		attempts = append(attempts, fmt.Sprintf("GOOGLE_APPLICATION_CREDENTIALS %s: %v", path, err))
	}

	if len(attempts) == 0 {
		attempts = append(attempts, "no credential source configured")
	}
	return nil, report.Errorf(report.KindAuth, "no usable analytics credentials: %s", strings.Join(attempts, "; "))
}

func tokenSourceFromFile(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwtTokenSource(ctx, data)
}
