package cmd

import (
	"context"

	"github.com/foomo/objectstore/pkg/builder"
	"github.com/foomo/objectstore/pkg/config"
	"github.com/foomo/objectstore/pkg/filesystem"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// openHandler builds the store behind the --store url from the store flags
func openHandler(ctx context.Context, l *zap.Logger, v *viper.Viper) (*filesystem.Handler, error) {
	root, err := storeURLFlag(v)
	if err != nil {
		return nil, err
	}
	options, err := optionFlag(v)
	if err != nil {
		return nil, err
	}

	opts := []builder.Option{
		builder.WithOptions(options),
		builder.WithClientOptions(config.ClientOptions{
			Timeout:        timeoutFlag(v),
			ConnectTimeout: connectTimeoutFlag(v),
			AllowInsecure:  allowInsecureFlag(v),
			ProxyURL:       proxyURLFlag(v),
			UserAgent:      "objectstore/" + version,
		}),
	}
	if value := prefixFlag(v); value != "" {
		prefix, err := path.Parse(value)
		if err != nil {
			return nil, errors.Wrap(err, "invalid prefix")
		}
		opts = append(opts, builder.WithPrefix(prefix))
	}

	store, u, err := builder.Open(ctx, l, root, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", root)
	}
	l.Debug("opened store",
		zap.String("url", u.String()),
		zap.Stringer("backend", u.Kind()),
		zap.String("prefix", store.Prefix().String()),
	)

	return filesystem.NewHandler(l, store,
		filesystem.WithRootURL(u.String()),
		filesystem.WithWalkConcurrency(walkConcurrencyFlag(v)),
	), nil
}
