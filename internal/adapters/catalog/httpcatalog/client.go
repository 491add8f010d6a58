package httpcatalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pet-adoption-hub/internal/platform/httpclient"
	"pet-adoption-hub/internal/ports/catalog"
)

var (
	ErrCatalogNotConfigured = errors.New("catalog client not configured")
	ErrCatalogUnauthorized  = errors.New("catalog unauthorized")
	ErrCatalogUpstream      = errors.New("catalog upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
}

// Client consulta el servicio de catálogo de mascotas publicadas.
type Client struct {
	http   *httpclient.Client
	apiKey string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	hc, err := httpclient.New(cfg.BaseURL,
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithHeader(h, apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Client{
		http:   hc,
		apiKey: apiKey,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http.BaseURL() != "" && c.apiKey != ""
}

type petResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ShelterID   string `json:"shelter_id"`
	IsAdoptable bool   `json:"is_adoptable"`
}

func (c *Client) GetAdoptablePet(ctx context.Context, petID string) (catalog.AdoptablePet, error) {
	if !c.IsConfigured() {
		return catalog.AdoptablePet{}, ErrCatalogNotConfigured
	}
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return catalog.AdoptablePet{}, catalog.ErrPetNotFound
	}

	var out petResponse
	err := c.http.Get(ctx, "/v1/pets/"+url.PathEscape(petID), &out)
	if err != nil {
		var he *httpclient.HTTPError
		if errors.As(err, &he) {
			switch he.StatusCode {
			case http.StatusNotFound:
				return catalog.AdoptablePet{}, catalog.ErrPetNotFound
			case http.StatusUnauthorized, http.StatusForbidden:
				return catalog.AdoptablePet{}, ErrCatalogUnauthorized
			}
			return catalog.AdoptablePet{}, fmt.Errorf("%w: status=%d", ErrCatalogUpstream, he.StatusCode)
		}
		return catalog.AdoptablePet{}, fmt.Errorf("%w: %v", ErrCatalogUpstream, err)
	}

	id := strings.TrimSpace(out.ID)
	if id == "" {
		id = petID
	}
	return catalog.AdoptablePet{
		PetID:       id,
		Name:        strings.TrimSpace(out.Name),
		ShelterID:   strings.TrimSpace(out.ShelterID),
		IsAdoptable: out.IsAdoptable,
	}, nil
}
