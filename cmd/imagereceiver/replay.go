package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescp17/imageReceiver/pkg/receiver"
	"github.com/rescp17/imageReceiver/pkg/replay"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

func newReplayCmd() *cobra.Command {
	var (
		opts       = replay.DefaultOptions()
		packetSize int
		timeout    time.Duration
		output     string
	)

	cmd := &cobra.Command{
		Use:   "replay <image-file>",
		Short: "Packetize a local image and run it through the receiver",
		Long: "replay cuts a file into packets exactly as the camera would, optionally loses,\n" +
			"duplicates or reorders some of them, and reports what the receiver rebuilt.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")
			logCloser, err := setupLogging(logFile, verbose)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer logCloser.Close()

			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			frames, err := replay.Frames(image, packetSize, opts)
			if err != nil {
				return err
			}

			config := transfer.DefaultTransferConfig()
			config.PacketSize = packetSize
			if config.MaxPayloadSize < packetSize {
				config.MaxPayloadSize = packetSize
			}
			config.SessionTimeout = timeout

			var appOpts []receiver.Option
			if output != "" {
				writer, err := receiver.NewImageWriter(output)
				if err != nil {
					return err
				}
				appOpts = append(appOpts, receiver.WithImageWriter(writer))
			}

			report, err := replay.Run(cmd.Context(), image, frames, config, appOpts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d bytes, %d packets, %d frames\n",
				keyColor.Sprint("sent:"), len(image), config.PacketCountFor(uint32(len(image))), report.Frames)
			for _, result := range report.Results {
				printResult(out, result, "")
			}
			printStats(out, report.Stats)
			switch {
			case report.Identical:
				okColor.Fprintln(out, "image reconstructed byte for byte")
			case len(report.Results) == 0:
				errColor.Fprintln(out, "no image was produced")
			default:
				warnColor.Fprintln(out, "image differs from the input")
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&packetSize, "packet-size", transfer.DefaultPacketSize, "Payload bytes per packet")
	flags.DurationVar(&timeout, "timeout", 2*time.Second, "Session timeout for the replayed image")
	flags.StringVarP(&output, "output", "o", "", "Also save the reconstructed image to this directory")
	flags.IntSliceVar(&opts.Drop, "drop", nil, "Packet indices to drop")
	flags.IntSliceVar(&opts.Duplicate, "duplicate", nil, "Packet indices to send twice")
	flags.BoolVar(&opts.Shuffle, "shuffle", false, "Send packets in random order")
	flags.Uint64Var(&opts.Seed, "seed", 1, "Seed for --shuffle")
	flags.BoolVar(&opts.NoCount, "no-count", false, "Send an end marker without a packet count")
	flags.Int64Var(&opts.DeclaredSize, "declared-size", -1, "Announce this size instead of the real one")
	flags.IntVar(&opts.LateAfterEnd, "late", 0, "Send this many packets after the end marker")

	return cmd
}
