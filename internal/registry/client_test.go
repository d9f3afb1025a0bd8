package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cnpj/v1/12345678000190", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"razao_social": "ACME SERVICOS LTDA",
			"nome_fantasia": "Acme",
			"logradouro": "RUA DAS FLORES",
			"numero": "123",
			"bairro": "CENTRO",
			"municipio": "CAMPO GRANDE",
			"uf": "MS",
			"cnae_fiscal_principal": {"codigo": 6201501},
			"cnaes_secundarios": [{"codigo": 6202300}, {"codigo": 6203100}]
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	profile, err := client.Lookup(context.Background(), "12.345.678/0001-90")

	require.NoError(t, err)
	assert.Equal(t, "12345678000190", profile.CNPJ)
	assert.Equal(t, "ACME SERVICOS LTDA", profile.LegalName)
	assert.Equal(t, "Acme", profile.TradeName)
	assert.Equal(t, "RUA DAS FLORES, 123", profile.Street)
	assert.Equal(t, "CAMPO GRANDE", profile.City)
	assert.Equal(t, "MS", profile.State)
	assert.Equal(t, "6201501", profile.PrimaryCNAE)
	assert.Equal(t, []string{"6202300", "6203100"}, profile.SecondaryCNAEs)
}

func TestLookupNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Lookup(context.Background(), "00000000000000")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Lookup(context.Background(), "12345678000190")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Lookup(context.Background(), "12345678000190")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLookupMissingOptionalFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"razao_social": "MEI JOSE DA SILVA"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	profile, err := client.Lookup(context.Background(), "12345678000190")

	require.NoError(t, err)
	assert.Equal(t, "MEI JOSE DA SILVA", profile.LegalName)
	assert.Empty(t, profile.PrimaryCNAE)
	assert.Empty(t, profile.SecondaryCNAEs)
}
