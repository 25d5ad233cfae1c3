package config

import (
	"os"
	"strings"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/pkg/errors"
)

// ErrMissingCredential is returned when no usable credential could be
// assembled from the options and the environment
var ErrMissingCredential = errors.Wrap(objectstore.ErrConfiguration, "failed to find valid credential")

type (
	// Options is the string keyed backend option map. Keys are matched
	// case-insensitively against the aliases of each backend.
	Options map[string]string
	// LookupEnvFunc has the signature of os.LookupEnv
	LookupEnvFunc func(key string) (string, bool)

	resolveOptions struct {
		lookupEnv LookupEnvFunc
	}
	ResolveOption func(*resolveOptions)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithLookupEnv replaces the environment lookup, mainly for tests
func WithLookupEnv(v LookupEnvFunc) ResolveOption {
	return func(o *resolveOptions) {
		o.lookupEnv = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// IsTruthy reports whether val is one of 1, true, on, yes, y
func IsTruthy(val string) bool {
	switch strings.ToLower(val) {
	case "1", "true", "on", "yes", "y":
		return true
	default:
		return false
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func requiredError(msg string) error {
	return errors.Wrapf(objectstore.ErrConfiguration, "missing configuration %s", msg)
}

type alias[K comparable] struct {
	name string
	key  K
}

// aliasTable is ordered; environment variables are probed in table order
type aliasTable[K comparable] []alias[K]

func (t aliasTable[K]) lookup(name string) (K, bool) {
	name = strings.ToLower(name)
	for _, a := range t {
		if a.name == name {
			return a.key, true
		}
	}
	var zero K
	return zero, false
}

// resolver holds parsed option values and falls back to the environment
type resolver[K comparable] struct {
	table     aliasTable[K]
	values    map[K]string
	lookupEnv LookupEnvFunc
}

func newResolver[K comparable](table aliasTable[K], options Options, opts ...ResolveOption) *resolver[K] {
	o := &resolveOptions{
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(o)
	}

	values := make(map[K]string, len(options))
	for raw, value := range options {
		if key, ok := table.lookup(raw); ok {
			values[key] = value
		}
	}
	return &resolver[K]{
		table:     table,
		values:    values,
		lookupEnv: o.lookupEnv,
	}
}

// option returns the value from the option map only
func (r *resolver[K]) option(key K) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// env probes the upper cased aliases of key
func (r *resolver[K]) env(key K) (string, bool) {
	for _, a := range r.table {
		if a.key != key {
			continue
		}
		if v, ok := r.lookupEnv(strings.ToUpper(a.name)); ok {
			return v, true
		}
	}
	return "", false
}

// get returns the option value, falling back to the environment
func (r *resolver[K]) get(key K) (string, bool) {
	if v, ok := r.option(key); ok {
		return v, true
	}
	return r.env(key)
}

func (r *resolver[K]) truthy(key K) (bool, bool) {
	v, ok := r.get(key)
	if !ok {
		return false, false
	}
	return IsTruthy(v), true
}
