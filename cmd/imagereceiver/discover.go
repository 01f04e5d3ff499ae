package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/discovery"
)

func newDiscoverCmd() *cobra.Command {
	var (
		timeout     time.Duration
		serviceType string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List receivers announced on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")
			logCloser, err := setupLogging(logFile, verbose)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer logCloser.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			adapter := &discovery.MDNSAdapter{}
			var latest []discovery.ServiceInfo
			for result := range adapter.Discover(ctx, discovery.ServiceQuery(serviceType, discovery.DefaultDomain)) {
				if result.Error != nil {
					return result.Error
				}
				latest = result.Services
			}

			out := cmd.OutOrStdout()
			if len(latest) == 0 {
				warnColor.Fprintf(out, "no receivers found within %s\n", timeout)
				return nil
			}

			sort.Slice(latest, func(i, j int) bool { return latest[i].Name < latest[j].Name })
			for _, svc := range latest {
				addr := "?"
				if svc.Addr != nil {
					addr = svc.Addr.String()
				}
				fmt.Fprintf(out, "%s %s %s %s\n",
					okColor.Sprint(util.PadRight(svc.Name, 32)),
					util.PadRight(fmt.Sprintf("%s:%d", addr, svc.Port), 24),
					keyColor.Sprint(util.PadRight(svc.Text[discovery.TextTransport], 6)),
					dimColor.Sprintf("packet size %s", svc.Text[discovery.TextPacketSize]))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to browse")
	cmd.Flags().StringVar(&serviceType, "type", discovery.DefaultServiceType, "mDNS service type to browse")
	return cmd
}
