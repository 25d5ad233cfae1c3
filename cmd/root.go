package cmd

import (
	"strings"

	"github.com/foomo/keel/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewRootCommand represents the base command when called without any subcommands
func NewRootCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:           "objectstore",
		Short:         "Work with files on local, in-memory, S3, Azure and GCS object stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zap.ReplaceGlobals(log.NewLogger(
				logLevelFlag(v),
				logFormatFlag(v),
			))
		},
	}

	flags := cmd.PersistentFlags()
	addLogLevelFlag(flags, v)
	addLogFormatFlag(flags, v)
	addStoreURLFlag(flags, v)
	addStoreFlags(flags, v)

	cmd.AddCommand(
		NewLsCommand(v),
		NewInfoCommand(v),
		NewCatCommand(v),
		NewPutCommand(v),
		NewCopyCommand(v),
		NewMoveCommand(v),
		NewRmCommand(v),
		NewServeCommand(v),
		NewVersionCommand(),
	)

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Logger().Fatal("failed to run command", zap.Error(err))
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("objectstore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func storeURLFlag(v *viper.Viper) (string, error) {
	value := v.GetString("store")
	if value == "" {
		return "", errors.New("missing store url, set --store or OBJECTSTORE_STORE")
	}
	return value, nil
}

func addStoreURLFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringP("store", "s", "", "Root location of the store (path, file://, memory://, s3://, az://, gs://, https://)")
	_ = v.BindPFlag("store", flags.Lookup("store"))
	_ = v.BindEnv("store", "OBJECTSTORE_STORE")
}
