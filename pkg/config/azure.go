package config

import (
	"net/url"
	"strings"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/pkg/errors"
)

type azureKey int

const (
	azureAccountKey azureKey = iota
	azureAccountName
	azureClientID
	azureClientSecret
	azureAuthorityID
	azureSASKey
	azureUseEmulator
	azureAllowHTTP
)

var azureAliases = aliasTable[azureKey]{
	{"azure_storage_account_key", azureAccountKey},
	{"azure_storage_access_key", azureAccountKey},
	{"azure_storage_master_key", azureAccountKey},
	{"azure_storage_key", azureAccountKey},
	{"account_key", azureAccountKey},
	{"access_key", azureAccountKey},
	{"azure_storage_sas_token", azureSASKey},
	{"azure_storage_sas_key", azureSASKey},
	{"sas_token", azureSASKey},
	{"sas_key", azureSASKey},
	{"azure_storage_account_name", azureAccountName},
	{"account_name", azureAccountName},
	{"azure_storage_client_id", azureClientID},
	{"azure_client_id", azureClientID},
	{"client_id", azureClientID},
	{"azure_storage_client_secret", azureClientSecret},
	{"azure_client_secret", azureClientSecret},
	{"client_secret", azureClientSecret},
	{"azure_storage_tenant_id", azureAuthorityID},
	{"azure_storage_authority_id", azureAuthorityID},
	{"azure_tenant_id", azureAuthorityID},
	{"azure_authority_id", azureAuthorityID},
	{"tenant_id", azureAuthorityID},
	{"authority_id", azureAuthorityID},
	{"azure_storage_use_emulator", azureUseEmulator},
	{"object_store_use_emulator", azureUseEmulator},
	{"use_emulator", azureUseEmulator},
	{"azure_allow_http", azureAllowHTTP},
	{"allow_http", azureAllowHTTP},
}

// AzureCredential names the authorization used against the account
type AzureCredential int

const (
	AzureSharedKey AzureCredential = iota + 1
	AzureSAS
	AzureClientSecret
)

func (c AzureCredential) String() string {
	switch c {
	case AzureSharedKey:
		return "shared-key"
	case AzureSAS:
		return "sas"
	case AzureClientSecret:
		return "client-secret"
	default:
		return "unknown"
	}
}

// SASPair is one decoded key value pair of a SAS token
type SASPair struct {
	Key   string
	Value string
}

// Azure is the resolved configuration of an Azure blob backend
type Azure struct {
	AccountName string
	Credential  AzureCredential
	AccountKey  string
	SAS         []SASPair
	ClientID    string
	// ClientSecret and TenantID are only set with AzureClientSecret
	ClientSecret string
	TenantID     string
	UseEmulator  bool
	AllowHTTP    bool
}

// SASQuery encodes the SAS pairs as a query string
func (c Azure) SASQuery() string {
	parts := make([]string, 0, len(c.SAS))
	for _, pair := range c.SAS {
		parts = append(parts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return strings.Join(parts, "&")
}

// ResolveAzure resolves the Azure configuration. The account name from the
// options or the environment takes precedence over the one parsed from the
// URL. Credentials are probed in this order: account key, SAS key from the
// options, client secret from the options, client secret with env
// fallback, SAS key from the environment.
func ResolveAzure(account string, options Options, opts ...ResolveOption) (Azure, error) {
	r := newResolver(azureAliases, options, opts...)

	if v, ok := r.get(azureAccountName); ok && v != "" {
		account = v
	}
	if account == "" {
		return Azure{}, requiredError("azure storage account must be specified")
	}

	c := Azure{
		AccountName: account,
	}
	c.UseEmulator, _ = r.truthy(azureUseEmulator)
	c.AllowHTTP, _ = r.truthy(azureAllowHTTP)

	if key, ok := r.option(azureAccountKey); ok {
		c.Credential = AzureSharedKey
		c.AccountKey = key
		return c, nil
	}

	if sas, ok := r.option(azureSASKey); ok {
		pairs, err := SplitSAS(sas)
		if err != nil {
			return Azure{}, err
		}
		c.Credential = AzureSAS
		c.SAS = pairs
		return c, nil
	}

	clientID, okID := r.option(azureClientID)
	clientSecret, okSecret := r.option(azureClientSecret)
	tenantID, okTenant := r.option(azureAuthorityID)
	if okID && okSecret && okTenant {
		return c.withClientSecret(clientID, clientSecret, tenantID), nil
	}

	clientID, okID = r.get(azureClientID)
	clientSecret, okSecret = r.get(azureClientSecret)
	tenantID, okTenant = r.get(azureAuthorityID)
	if okID && okSecret && okTenant {
		return c.withClientSecret(clientID, clientSecret, tenantID), nil
	}

	if sas, ok := r.env(azureSASKey); ok {
		pairs, err := SplitSAS(sas)
		if err != nil {
			return Azure{}, err
		}
		c.Credential = AzureSAS
		c.SAS = pairs
		return c, nil
	}

	return Azure{}, ErrMissingCredential
}

// SplitSAS percent-decodes a SAS token and splits it into key value pairs.
// A leading "?" and blank pairs are ignored.
func SplitSAS(sas string) ([]SASPair, error) {
	decoded, err := url.PathUnescape(sas)
	if err != nil {
		return nil, errors.Wrapf(objectstore.ErrConfiguration,
			"failed to decode SAS key: %s; SAS keys must be percent-encoded. They come encoded in the Azure portal and Azure Storage Explorer", err)
	}

	var pairs []SASPair
	for _, part := range strings.Split(strings.TrimLeft(decoded, "?"), "&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, ErrMissingCredential
		}
		pairs = append(pairs, SASPair{Key: k, Value: v})
	}
	return pairs, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (c Azure) withClientSecret(clientID, clientSecret, tenantID string) Azure {
	c.Credential = AzureClientSecret
	c.ClientID = clientID
	c.ClientSecret = clientSecret
	c.TenantID = tenantID
	return c
}
