package config

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/pkg/errors"
)

// ClientOptions tunes the http client shared by every backend SDK
type ClientOptions struct {
	// Timeout is the overall request timeout, zero disables it
	Timeout time.Duration
	// ConnectTimeout bounds dialing
	ConnectTimeout time.Duration
	// AllowInsecure disables TLS certificate verification
	AllowInsecure bool
	// ProxyURL overrides the proxy from the environment
	ProxyURL string
	// UserAgent is sent with every request when set
	UserAgent string
}

// IsZero reports whether no tuning was requested
func (o ClientOptions) IsZero() bool {
	return o == ClientOptions{}
}

// HTTPClient builds a new http client from the options
func (o ClientOptions) HTTPClient() (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport")
	}
	transport = transport.Clone()

	if o.ConnectTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   o.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	if o.AllowInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	if o.ProxyURL != "" {
		proxy, err := url.Parse(o.ProxyURL)
		if err != nil {
			return nil, errors.Wrapf(objectstore.ErrConfiguration, "invalid proxy url %q: %s", o.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	var rt http.RoundTripper = transport
	if o.UserAgent != "" {
		rt = &userAgentTransport{userAgent: o.UserAgent, next: transport}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   o.Timeout,
	}, nil
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(r)
}
