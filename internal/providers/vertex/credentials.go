package vertex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"

	"veostudio/internal/domain"
)

const (
	// CloudPlatformScope grants access to every Vertex AI endpoint used here.
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"

	assertionLifetime   = time.Hour
	defaultTokenTimeout = 10 * time.Second
)

// ServiceAccount is the subset of a Google service account key file needed to
// mint assertions.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// ParseServiceAccount decodes a key file and checks the fields required for
// signing are present.
func ParseServiceAccount(raw []byte) (*ServiceAccount, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New("service account not configured")
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("decode service account: %w", err)
	}
	if strings.TrimSpace(sa.ClientEmail) == "" {
		return nil, errors.New("service account is missing client_email")
	}
	if strings.TrimSpace(sa.PrivateKey) == "" {
		return nil, errors.New("service account is missing private_key")
	}
	return &sa, nil
}

type CredentialOptions struct {
	// ServiceAccountJSON is the raw key file. A malformed value does not fail
	// construction; every AcquireToken call reports it instead.
	ServiceAccountJSON string
	TokenURL           string
	Timeout            time.Duration
	HTTPClient         *http.Client
	Logger             zerolog.Logger
}

// CredentialProvider exchanges a signed service account assertion for a
// short-lived bearer token. Tokens are never cached: each call performs a
// fresh exchange.
type CredentialProvider struct {
	account  *ServiceAccount
	parseErr error
	tokenURL string
	timeout  time.Duration
	client   *http.Client
	logger   zerolog.Logger
}

func NewCredentialProvider(opts CredentialOptions) *CredentialProvider {
	account, err := ParseServiceAccount([]byte(opts.ServiceAccountJSON))

	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" && account != nil {
		tokenURL = strings.TrimSpace(account.TokenURI)
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTokenTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &CredentialProvider{
		account:  account,
		parseErr: err,
		tokenURL: tokenURL,
		timeout:  timeout,
		client:   client,
		logger:   opts.Logger,
	}
}

// ClientEmail reports the configured account, "" when the key file is unusable.
func (p *CredentialProvider) ClientEmail() string {
	if p.account == nil {
		return ""
	}
	return p.account.ClientEmail
}

// AcquireToken returns a bearer token or an error wrapping
// domain.ErrCredentialAcquisition.
func (p *CredentialProvider) AcquireToken(ctx context.Context) (string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Token performs the assertion exchange and returns the full token, including
// its expiry.
func (p *CredentialProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	if p.parseErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCredentialAcquisition, p.parseErr)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	cfg := &jwt.Config{
		Email:        p.account.ClientEmail,
		PrivateKey:   []byte(p.account.PrivateKey),
		PrivateKeyID: p.account.PrivateKeyID,
		Scopes:       []string{CloudPlatformScope},
		TokenURL:     p.tokenURL,
		Expires:      assertionLifetime,
	}
	tok, err := cfg.TokenSource(ctx).Token()
	if err != nil {
		p.logger.Warn().Err(err).Str("client_email", p.account.ClientEmail).Msg("vertex: token exchange failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrCredentialAcquisition, err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return nil, fmt.Errorf("%w: identity provider returned an empty token", domain.ErrCredentialAcquisition)
	}
	return tok, nil
}
