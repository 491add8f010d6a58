package odin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pet-adoption-hub/internal/platform/httpclient"
	"pet-adoption-hub/internal/ports/auth"
)

var (
	ErrOdinNotConfigured = errors.New("odin client not configured")
	ErrOdinUnauthorized  = errors.New("odin unauthorized")
	ErrOdinUpstream      = errors.New("odin upstream error")
	ErrUserNotFound      = errors.New("odin user not found")
)

// Config del cliente Odin (IAM). Lo usan el verifier de tokens y el
// directorio de nombres visibles.
type Config struct {
	BaseURL string
	APIKey  string

	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http   *httpclient.Client
	apiKey string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	hc, err := httpclient.New(cfg.BaseURL,
		httpclient.WithTimeout(timeout),
		httpclient.WithHeader(h, apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("odin: %w", err)
	}
	return &Client{
		http:   hc,
		apiKey: apiKey,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http.BaseURL() != "" && c.apiKey != ""
}

type verifyResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

// VerifyToken llama a Odin para verificar un token y traer claims.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrOdinNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrOdinUnauthorized
	}

	var out verifyResponse
	err := c.http.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/tokens/verify",
		Header: http.Header{"Authorization": {"Bearer " + token}},
		Body:   map[string]string{"token": token},
	}, &out)
	if err != nil {
		return auth.Claims{}, mapError(err, ErrOdinUnauthorized)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, errors.New("odin response missing user_id")
	}

	return auth.Claims{
		UserID:   out.UserID,
		Email:    strings.TrimSpace(out.Email),
		TenantID: strings.TrimSpace(out.TenantID),
	}, nil
}

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

// GetDisplayName devuelve el nombre visible de un usuario (owner o shelter).
func (c *Client) GetDisplayName(ctx context.Context, userID string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrOdinNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("userID required")
	}

	var out userResponse
	err := c.http.Get(ctx, "/v1/users/"+url.PathEscape(userID), &out)
	if err != nil {
		return "", mapError(err, ErrUserNotFound)
	}

	if name := strings.TrimSpace(out.DisplayName); name != "" {
		return name, nil
	}
	return strings.TrimSpace(out.Name), nil
}

// mapError traduce errores HTTP a los sentinels del paquete; notFound se
// usa para 404 (y para 401/403 en el caso de tokens).
func mapError(err error, notFound error) error {
	var he *httpclient.HTTPError
	if errors.As(err, &he) {
		switch he.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrOdinUnauthorized
		case http.StatusNotFound:
			return notFound
		}
		return fmt.Errorf("%w: status=%d", ErrOdinUpstream, he.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrOdinUpstream, err)
}
