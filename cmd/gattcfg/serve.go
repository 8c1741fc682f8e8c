package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gatt "github.com/XC-/gattdesc"
	"github.com/XC-/gattdesc/examples/service"
)

// stdio is the shim when gattcfg itself is spawned by the BLE stack.
type stdio struct {
	io.Reader
	io.Writer
}

func serveCmd(o *options) *cobra.Command {
	var (
		name     string
		shimPath string
		mtu      uint16
		tick     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve [-- shim-args...]",
		Short: "Serve the demo GATT services over a shim",
		Long: "Serve the demo battery and count services. ATT traffic is " +
			"exchanged with a shim, either the executable given with --shim " +
			"or, by default, this process's stdin and stdout.",
		Example: "  " + exeName + " --store backend=bolt serve --shim hci-ble -- hci0",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Open the store before the first central can connect.
			ps, err := gatt.InitDefault(o.openStore)
			if err != nil {
				return err
			}

			srv := gatt.NewServer(
				gatt.Name(name),
				gatt.MaxMTU(mtu),
				gatt.Connect(func(c gatt.Conn) { log.Infof("Connect: %s", c.RemoteAddr()) }),
				gatt.Disconnect(func(c gatt.Conn) { log.Infof("Disconnect: %s", c.RemoteAddr()) }),
			)
			srv.AddService(service.NewBatteryService(service.NewBattery(100, tick), nil))
			srv.AddService(service.NewCountService())
			if err := srv.Start(); err != nil {
				ps.Close()
				return err
			}

			var rw io.ReadWriter = stdio{os.Stdin, os.Stdout}
			if shimPath != "" {
				sh, err := gatt.NewCShim(shimPath, args...)
				if err != nil {
					ps.Close()
					return err
				}
				defer sh.Close()
				rw = sh
			}

			onExit := func() {
				srv.Close()
				if err := ps.Close(); err != nil {
					log.Warnf("Closing store: %s", err)
				}
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				onExit()
				os.Exit(0)
			}()

			log.Infof("Serving %q", name)
			err = srv.Serve(rw)
			signal.Stop(sigChan)
			onExit()
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "gopher", "device name exposed in the GAP service")
	cmd.Flags().StringVar(&shimPath, "shim", "", "BLE shim executable; stdin/stdout if empty")
	cmd.Flags().Uint16Var(&mtu, "mtu", 517, "largest ATT_MTU to accept")
	cmd.Flags().DurationVar(&tick, "battery-tick", 10*time.Second, "battery drain interval")
	return cmd
}
