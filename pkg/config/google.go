package config

type googleKey int

const (
	googleServiceAccount googleKey = iota
)

var googleAliases = aliasTable[googleKey]{
	{"google_service_account", googleServiceAccount},
	{"service_account", googleServiceAccount},
}

// Google is the resolved configuration of a GCS backend
type Google struct {
	// ServiceAccountPath points to a service account JSON key file
	ServiceAccountPath string
}

func ResolveGoogle(options Options, opts ...ResolveOption) (Google, error) {
	r := newResolver(googleAliases, options, opts...)
	v, ok := r.get(googleServiceAccount)
	if !ok || v == "" {
		return Google{}, requiredError("google service account must be specified")
	}
	return Google{ServiceAccountPath: v}, nil
}
