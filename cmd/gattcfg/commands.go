package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/XC-/gattdesc/kvstore"
)

const (
	exeName       = "gattcfg"
	versionString = "0.1.0"
)

// options holds the persistent flags shared by every command.
type options struct {
	logLevel    string
	storeString string
}

// storeConfig returns the store configuration selected by --store.
func (o *options) storeConfig() (kvstore.Config, error) {
	return kvstore.ParseConnString(o.storeString)
}

func (o *options) openStore() (kvstore.Store, error) {
	cfg, err := o.storeConfig()
	if err != nil {
		return nil, err
	}
	return kvstore.Open(cfg)
}

func Commands() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           exeName,
		Short:         exeName + " serves and inspects persisted GATT descriptors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(o.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&o.logLevel, "loglevel", "l", "info",
		"log level to use")

	rootCmd.PersistentFlags().StringVarP(&o.storeString, "store", "s", "",
		"descriptor store key-value pairs, e.g. backend=bolt,path=~/.gattdesc.db")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + exeName + " version number",
		Example: "  " + exeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", exeName, versionString)
		},
	}
	rootCmd.AddCommand(versCmd)

	rootCmd.AddCommand(serveCmd(o))
	rootCmd.AddCommand(cccdCmd(o))

	return rootCmd
}
