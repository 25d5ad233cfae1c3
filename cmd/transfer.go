package cmd

import (
	"io"
	"os"

	"github.com/foomo/keel/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func NewCatCommand(sv *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Write a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			_, err = h.Download(cmd.Context(), args[0], cmd.OutOrStdout())
			return err
		},
	}
}

func NewPutCommand(sv *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> [local file]",
		Short: "Store a local file, or stdin, at path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			l := log.Logger()
			h, err := openHandler(cmd.Context(), l, sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, openErr := os.Open(args[1])
				if openErr != nil {
					return openErr
				}
				defer func() {
					err = multierr.Append(err, f.Close())
				}()
				src = f
			}

			n, err := h.Upload(cmd.Context(), args[0], src)
			if err != nil {
				return err
			}
			l.Info("stored file", zap.String("path", args[0]), zap.Int64("size", n))
			return nil
		},
	}
}

func NewCopyCommand(sv *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cp <src> <dest>",
		Short: "Copy a file, overwriting dest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			return h.CopyFile(cmd.Context(), args[0], args[1])
		},
	}
}

func NewMoveCommand(sv *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dest>",
		Short: "Move a file, overwriting dest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			return h.MoveFile(cmd.Context(), args[0], args[1])
		},
	}
}

func NewRmCommand(sv *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files, or directories with --dir",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			var errs error
			for _, p := range args {
				if dirFlag(v) {
					errs = multierr.Append(errs, h.DeleteDir(cmd.Context(), p))
				} else {
					errs = multierr.Append(errs, h.DeleteFile(cmd.Context(), p))
				}
			}
			return errs
		},
	}

	addDirFlag(cmd.Flags(), v)

	return cmd
}
