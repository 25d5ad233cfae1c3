package config

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) ResolveOption {
	return WithLookupEnv(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

func noEnv() ResolveOption {
	return env(nil)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "On", "yes", "Y"} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		assert.False(t, IsTruthy(v), v)
	}
}

func TestResolveS3(t *testing.T) {
	c, err := ResolveS3("bucket", Options{
		"AWS_ACCESS_KEY_ID":            "id",
		"secret_access_key":            "secret",
		"Region":                       "eu-central-1",
		"endpoint_url":                 "http://localhost:9000",
		"virtual_hosted_style_request": "true",
		"allow_http":                   "1",
		"unknown":                      "ignored",
	}, noEnv())
	require.NoError(t, err)
	assert.Equal(t, "bucket", c.Bucket)
	assert.Equal(t, "eu-central-1", c.Region)
	assert.Equal(t, "http://localhost:9000", c.Endpoint)
	assert.True(t, c.VirtualHostedStyle)
	assert.True(t, c.AllowHTTP)
	assert.True(t, c.HasStaticCredentials())
}

func TestResolveS3_EnvFallback(t *testing.T) {
	c, err := ResolveS3("", Options{"bucket": "from-options"}, env(map[string]string{
		"AWS_DEFAULT_REGION": "us-west-2",
		"AWS_SESSION_TOKEN":  "token",
		"AWS_ACCESS_KEY_ID":  "id",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-options", c.Bucket)
	assert.Equal(t, "us-west-2", c.Region)
	assert.Equal(t, "token", c.SessionToken)
	// secret is missing, so the key id alone is not used
	assert.False(t, c.HasStaticCredentials())
}

func TestResolveS3_Required(t *testing.T) {
	_, err := ResolveS3("bucket", Options{}, noEnv())
	require.Error(t, err)
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)
	assert.Contains(t, err.Error(), "region")

	_, err = ResolveS3("", Options{"region": "us-east-1"}, noEnv())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestResolveAzure_AccountKey(t *testing.T) {
	c, err := ResolveAzure("", Options{
		"account_name": "acc",
		"account_key":  "key",
		"sas_key":      "sv=1",
	}, noEnv())
	require.NoError(t, err)
	assert.Equal(t, "acc", c.AccountName)
	assert.Equal(t, AzureSharedKey, c.Credential)
	assert.Equal(t, "key", c.AccountKey)
}

func TestResolveAzure_SAS(t *testing.T) {
	c, err := ResolveAzure("from-url", Options{
		"sas_token": "?sv=2021-06-08&sig=a%2Bb%3D",
	}, noEnv())
	require.NoError(t, err)
	assert.Equal(t, "from-url", c.AccountName)
	assert.Equal(t, AzureSAS, c.Credential)
	assert.Equal(t, []SASPair{{"sv", "2021-06-08"}, {"sig", "a+b="}}, c.SAS)
	assert.Equal(t, "sv=2021-06-08&sig=a%2Bb%3D", c.SASQuery())
}

func TestResolveAzure_ClientSecretFromEnv(t *testing.T) {
	c, err := ResolveAzure("acc", Options{"client_id": "cid"}, env(map[string]string{
		"AZURE_CLIENT_SECRET": "secret",
		"AZURE_TENANT_ID":     "tenant",
	}))
	require.NoError(t, err)
	assert.Equal(t, AzureClientSecret, c.Credential)
	assert.Equal(t, "cid", c.ClientID)
	assert.Equal(t, "secret", c.ClientSecret)
	assert.Equal(t, "tenant", c.TenantID)
}

func TestResolveAzure_SASFromEnv(t *testing.T) {
	c, err := ResolveAzure("acc", Options{}, env(map[string]string{
		"AZURE_STORAGE_SAS_TOKEN": "sv=1&sp=r",
	}))
	require.NoError(t, err)
	assert.Equal(t, AzureSAS, c.Credential)
	assert.Len(t, c.SAS, 2)
}

func TestResolveAzure_Errors(t *testing.T) {
	_, err := ResolveAzure("", Options{"account_key": "key"}, noEnv())
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)

	_, err = ResolveAzure("acc", Options{}, noEnv())
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)
}

func TestSplitSAS(t *testing.T) {
	pairs, err := SplitSAS("?a=1& &b=2")
	require.NoError(t, err)
	assert.Equal(t, []SASPair{{"a", "1"}, {"b", "2"}}, pairs)

	_, err = SplitSAS("a=1&broken")
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = SplitSAS("a=%zz")
	require.Error(t, err)
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)
	assert.Contains(t, err.Error(), "percent-encoded")
}

func TestResolveGoogle(t *testing.T) {
	c, err := ResolveGoogle(Options{"SERVICE_ACCOUNT": "/tmp/key.json"}, noEnv())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/key.json", c.ServiceAccountPath)

	c, err = ResolveGoogle(Options{}, env(map[string]string{"GOOGLE_SERVICE_ACCOUNT": "/env.json"}))
	require.NoError(t, err)
	assert.Equal(t, "/env.json", c.ServiceAccountPath)

	_, err = ResolveGoogle(Options{}, noEnv())
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)
}

func TestClientOptions_HTTPClient(t *testing.T) {
	var agent string
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.UserAgent()
	}))
	defer svr.Close()

	client, err := ClientOptions{
		Timeout:        5 * time.Second,
		ConnectTimeout: time.Second,
		UserAgent:      "objectstore-test",
	}.HTTPClient()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get(svr.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "objectstore-test", agent)

	_, err = ClientOptions{ProxyURL: "://bad"}.HTTPClient()
	assert.ErrorIs(t, err, objectstore.ErrConfiguration)
}
