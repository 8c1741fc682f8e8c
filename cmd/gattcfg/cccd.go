package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	gatt "github.com/XC-/gattdesc"
)

func withPeerStore(o *options, f func(ps *gatt.PeerStore) error) error {
	kv, err := o.openStore()
	if err != nil {
		return err
	}
	ps := gatt.NewPeerStore(kv)
	defer ps.Close()
	return f(ps)
}

func printClientConfig(w io.Writer, ps *gatt.PeerStore, key string) error {
	addr, err := gatt.ParsePeerKey(key)
	if err != nil {
		return err
	}
	key, _ = gatt.PeerKey(addr)

	cfg, ok, err := ps.ClientConfig(addr)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(w, "%s  0000 (unset)\n", key)
		return nil
	}
	fmt.Fprintf(w, "%s  %x  %s\n", key, cfg.Bytes(), cfg)
	return nil
}

func cccdGetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "get <addr>",
		Short:   "Print the CCCD value persisted for a peer",
		Example: "  " + exeName + " cccd get DE:AD:BE:EF:00:01",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeerStore(o, func(ps *gatt.PeerStore) error {
				return printClientConfig(cmd.OutOrStdout(), ps, args[0])
			})
		},
	}
}

func cccdSetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <addr> <value>",
		Short: "Persist a CCCD value for a peer",
		Long: "Persist a CCCD value for a peer. The value is the two bytes a " +
			"central writes, in hex: 0100 enables notifications, 0200 " +
			"indications, 0000 neither.",
		Example: "  " + exeName + " cccd set DE:AD:BE:EF:00:01 0100",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := gatt.ParsePeerKey(args[0])
			if err != nil {
				return err
			}
			b, err := hex.DecodeString(args[1])
			if err != nil {
				return errors.Wrapf(err, "invalid value %q", args[1])
			}
			cfg, err := gatt.ParseClientConfig(b)
			if err != nil {
				return err
			}

			return withPeerStore(o, func(ps *gatt.PeerStore) error {
				if err := ps.SetClientConfig(addr, cfg); err != nil {
					return err
				}
				return printClientConfig(cmd.OutOrStdout(), ps, args[0])
			})
		},
	}
}

func cccdListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List the CCCD values of every known peer",
		Example: "  " + exeName + " --store backend=file cccd list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPeerStore(o, func(ps *gatt.PeerStore) error {
				keys, err := ps.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					if err := printClientConfig(cmd.OutOrStdout(), ps, k); err != nil {
						return errors.Wrapf(err, "peer %s", k)
					}
				}
				return nil
			})
		},
	}
}

func cccdCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cccd",
		Short: "Inspect or edit persisted client characteristic configurations",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	cmd.AddCommand(cccdGetCmd(o))
	cmd.AddCommand(cccdSetCmd(o))
	cmd.AddCommand(cccdListCmd(o))
	return cmd
}
