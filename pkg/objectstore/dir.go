package objectstore

import (
	"context"

	"github.com/foomo/objectstore/pkg/path"
	"go.uber.org/multierr"
)

// DeleteDir removes every object below dir one by one. Failures are
// collected and returned together after all deletes were attempted.
func DeleteDir(ctx context.Context, store Store, dir path.Path) error {
	metas, err := store.List(ctx, dir)
	if err != nil {
		return err
	}
	var errs error
	for _, meta := range metas {
		if err := store.Delete(ctx, meta.Location); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
