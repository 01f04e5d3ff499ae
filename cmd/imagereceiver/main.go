package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

func main() {
	cmd := &cobra.Command{
		Use:   "imagereceiver",
		Short: "Reassemble images sent as BLE notification packets",
		Long: "imagereceiver listens for a camera's notification stream (relayed over UDP or QUIC),\n" +
			"puts each image back together from its packets and saves it.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("verbose", false, "Log packet-level detail")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	cmd.AddCommand(newReceiveCmd())
	cmd.AddCommand(newReplayCmd())
	cmd.AddCommand(newDiscoverCmd())

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
