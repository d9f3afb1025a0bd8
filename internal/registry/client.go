// Package registry looks company profiles up in the national registry
// (BrasilAPI) for pre-filling registration forms. The audit pipeline
// never touches it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fiscalfacil/audit-service/internal/model"
)

const defaultBaseURL = "https://brasilapi.com.br"

var (
	// ErrNotFound means the registry has no record for the CNPJ.
	ErrNotFound = errors.New("cnpj not found in registry")

	// ErrUnavailable means the registry could not be reached or answered
	// with a server error.
	ErrUnavailable = errors.New("registry service unavailable")
)

// Client talks to the company registry API
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL overrides the registry base URL
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout overrides the request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a registry client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cnpjResponse mirrors the BrasilAPI payload, only the fields used for
// pre-fill.
type cnpjResponse struct {
	RazaoSocial       string `json:"razao_social"`
	NomeFantasia      string `json:"nome_fantasia"`
	Logradouro        string `json:"logradouro"`
	Numero            string `json:"numero"`
	Bairro            string `json:"bairro"`
	Municipio         string `json:"municipio"`
	UF                string `json:"uf"`
	CNAEFiscalPrimary *struct {
		Codigo json.Number `json:"codigo"`
	} `json:"cnae_fiscal_principal"`
	CNAEsSecundarios []struct {
		Codigo json.Number `json:"codigo"`
	} `json:"cnaes_secundarios"`
}

// Lookup fetches the registry profile for a CNPJ. The CNPJ is
// normalized to digits before the call.
func (c *Client) Lookup(ctx context.Context, cnpj string) (*model.CompanyProfile, error) {
	normalized := model.NormalizeCNPJ(cnpj)
	url := fmt.Sprintf("%s/api/cnpj/v1/%s", c.baseURL, normalized)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.log.Info("looking up cnpj in registry", zap.String("cnpj", normalized))
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("registry request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		c.log.Warn("registry answered with server error", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("registry answered with status %d", resp.StatusCode)
	}

	var body cnpjResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: bad response body: %v", ErrUnavailable, err)
	}

	profile := &model.CompanyProfile{
		CNPJ:      normalized,
		LegalName: body.RazaoSocial,
		TradeName: body.NomeFantasia,
		Street:    fmt.Sprintf("%s, %s", body.Logradouro, body.Numero),
		District:  body.Bairro,
		City:      body.Municipio,
		State:     body.UF,
	}
	if body.CNAEFiscalPrimary != nil {
		profile.PrimaryCNAE = body.CNAEFiscalPrimary.Codigo.String()
	}
	for _, s := range body.CNAEsSecundarios {
		if code := s.Codigo.String(); code != "" {
			profile.SecondaryCNAEs = append(profile.SecondaryCNAEs, code)
		}
	}
	return profile, nil
}
