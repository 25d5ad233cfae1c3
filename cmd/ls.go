package cmd

import (
	"github.com/foomo/keel/log"
	"github.com/foomo/objectstore/pkg/filesystem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewLsCommand(sv *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the entries below a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			sel := filesystem.Selector{Recursive: recursiveFlag(v)}
			if len(args) > 0 {
				sel.BaseDir = args[0]
			}
			infos, err := h.GetFileInfoSelector(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if jsonFlag(v) {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			return printInfos(cmd.OutOrStdout(), infos)
		},
	}

	flags := cmd.Flags()
	addRecursiveFlag(flags, v)
	addJSONFlag(flags, v)

	return cmd
}

func NewInfoCommand(sv *viper.Viper) *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "info <path>...",
		Short: "Describe files and directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandler(cmd.Context(), log.Logger(), sv)
			if err != nil {
				return err
			}
			defer h.Store().Close()

			infos, err := h.GetFileInfo(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if jsonFlag(v) {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			return printInfos(cmd.OutOrStdout(), infos)
		},
	}

	addJSONFlag(cmd.Flags(), v)

	return cmd
}
