package cmd

import (
	"strings"
	"time"

	"github.com/foomo/objectstore/pkg/config"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "console", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

// optionFlag returns the repeated key=value backend options
func optionFlag(v *viper.Viper) (config.Options, error) {
	ret := config.Options{}
	for _, pair := range v.GetStringSlice("option") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid option %q, expected key=value", pair)
		}
		ret[key] = value
	}
	return ret, nil
}

func addOptionFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringArray("option", nil, "Backend option as key=value, may be repeated")
	_ = v.BindPFlag("option", flags.Lookup("option"))
	_ = v.BindEnv("option", "OBJECTSTORE_OPTION")
}

func prefixFlag(v *viper.Viper) string {
	return v.GetString("prefix")
}

func addPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("prefix", "", "Prefix to scope the store to, overrides the url path")
	_ = v.BindPFlag("prefix", flags.Lookup("prefix"))
	_ = v.BindEnv("prefix", "OBJECTSTORE_PREFIX")
}

func timeoutFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("client.timeout")
}

func addTimeoutFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("timeout", 0, "Request timeout of the backend client")
	_ = v.BindPFlag("client.timeout", flags.Lookup("timeout"))
	_ = v.BindEnv("client.timeout", "OBJECTSTORE_TIMEOUT")
}

func connectTimeoutFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("client.connect_timeout")
}

func addConnectTimeoutFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("connect-timeout", 0, "Connect timeout of the backend client")
	_ = v.BindPFlag("client.connect_timeout", flags.Lookup("connect-timeout"))
	_ = v.BindEnv("client.connect_timeout", "OBJECTSTORE_CONNECT_TIMEOUT")
}

func allowInsecureFlag(v *viper.Viper) bool {
	return v.GetBool("client.allow_insecure")
}

func addAllowInsecureFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("allow-insecure", false, "Skip TLS certificate verification")
	_ = v.BindPFlag("client.allow_insecure", flags.Lookup("allow-insecure"))
	_ = v.BindEnv("client.allow_insecure", "OBJECTSTORE_ALLOW_INSECURE")
}

func proxyURLFlag(v *viper.Viper) string {
	return v.GetString("client.proxy_url")
}

func addProxyURLFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("proxy-url", "", "Proxy for the backend client")
	_ = v.BindPFlag("client.proxy_url", flags.Lookup("proxy-url"))
	_ = v.BindEnv("client.proxy_url", "OBJECTSTORE_PROXY_URL")
}

func walkConcurrencyFlag(v *viper.Viper) int {
	return v.GetInt("walk.concurrency")
}

func addWalkConcurrencyFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("walk-concurrency", 16, "Concurrent listings while walking directory trees")
	_ = v.BindPFlag("walk.concurrency", flags.Lookup("walk-concurrency"))
	_ = v.BindEnv("walk.concurrency", "OBJECTSTORE_WALK_CONCURRENCY")
}

func recursiveFlag(v *viper.Viper) bool {
	return v.GetBool("recursive")
}

func addRecursiveFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.BoolP("recursive", "r", false, "Descend into sub directories")
	_ = v.BindPFlag("recursive", flags.Lookup("recursive"))
}

func jsonFlag(v *viper.Viper) bool {
	return v.GetBool("json")
}

func addJSONFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("json", false, "Print the result as json")
	_ = v.BindPFlag("json", flags.Lookup("json"))
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "OBJECTSTORE_ADDRESS")
}

func basePathFlag(v *viper.Viper) string {
	return v.GetString("base_path")
}

func addBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("base-path", "/objects", "Base path to export the webserver on")
	_ = v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = v.BindEnv("base_path", "OBJECTSTORE_BASE_PATH")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}

// addStoreFlags adds the flags every command opening a store needs
func addStoreFlags(flags *pflag.FlagSet, v *viper.Viper) {
	addOptionFlag(flags, v)
	addPrefixFlag(flags, v)
	addTimeoutFlag(flags, v)
	addConnectTimeoutFlag(flags, v)
	addAllowInsecureFlag(flags, v)
	addProxyURLFlag(flags, v)
	addWalkConcurrencyFlag(flags, v)
}

func dirFlag(v *viper.Viper) bool {
	return v.GetBool("dir")
}

func addDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("dir", false, "Delete everything below the given directories")
	_ = v.BindPFlag("dir", flags.Lookup("dir"))
}
