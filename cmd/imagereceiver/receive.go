package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	appevents "github.com/rescp17/imageReceiver/internal/app_events"
	receiverEvent "github.com/rescp17/imageReceiver/internal/app_events/receiver"
	"github.com/rescp17/imageReceiver/internal/config"
	"github.com/rescp17/imageReceiver/pkg/discovery"
	"github.com/rescp17/imageReceiver/pkg/publish"
	"github.com/rescp17/imageReceiver/pkg/receiver"
	"github.com/rescp17/imageReceiver/pkg/transfer"
	"github.com/rescp17/imageReceiver/pkg/transport"
	"github.com/rescp17/imageReceiver/pkg/ui"
)

type receiveFlags struct {
	configPath  string
	transport   string
	listen      string
	output      string
	timeout     time.Duration
	packetSize  int
	once        bool
	wait        time.Duration
	tui         bool
	natsURL     string
	natsSubject string
	redisAddr   string
	announce    bool
}

func newReceiveCmd() *cobra.Command {
	var f receiveFlags

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Listen for images and save them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceive(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&f.transport, "transport", config.TransportUDP, "Transport carrying the notifications (udp or quic)")
	flags.StringVar(&f.listen, "listen", config.DefaultListen, "Address to listen on")
	flags.StringVarP(&f.output, "output", "o", config.DefaultOutputDir, "Directory for received images")
	flags.DurationVar(&f.timeout, "timeout", transfer.DefaultSessionTimeout, "Give up on an image this long after its size header")
	flags.IntVar(&f.packetSize, "packet-size", transfer.DefaultPacketSize, "Payload bytes per packet the sender uses")
	flags.BoolVar(&f.once, "once", false, "Exit after the first image")
	flags.DurationVar(&f.wait, "wait", 30*time.Second, "With --once, how long to wait for an image to start")
	flags.BoolVar(&f.tui, "tui", isatty.IsTerminal(os.Stdout.Fd()), "Show the interactive view")
	flags.StringVar(&f.natsURL, "nats-url", "", "Publish images to this NATS server")
	flags.StringVar(&f.natsSubject, "nats-subject", publish.DefaultSubject, "NATS subject prefix")
	flags.StringVar(&f.redisAddr, "redis-addr", "", "Record image history in this Redis server")
	flags.BoolVar(&f.announce, "announce", false, "Advertise the receiver over mDNS")

	return cmd
}

// loadReceiveConfig reads the config file and lays explicitly set flags over it.
func loadReceiveConfig(cmd *cobra.Command, f receiveFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("transport") {
		cfg.Transport = f.transport
	}
	if changed("listen") {
		cfg.Listen = f.listen
	}
	if changed("output") {
		cfg.OutputDir = f.output
	}
	if changed("timeout") {
		cfg.Transfer.SessionTimeout = f.timeout.String()
	}
	if changed("packet-size") {
		cfg.Transfer.PacketSize = f.packetSize
		if cfg.Transfer.MaxPayloadSize < f.packetSize {
			cfg.Transfer.MaxPayloadSize = f.packetSize
		}
	}
	if changed("once") {
		cfg.Once = f.once
	}
	if changed("nats-url") {
		cfg.NATS.URL = f.natsURL
	}
	if changed("nats-subject") || cfg.NATS.Subject == "" {
		cfg.NATS.Subject = f.natsSubject
	}
	if changed("redis-addr") {
		cfg.Redis.Addr = f.redisAddr
	}
	if changed("announce") {
		cfg.MDNS.Announce = f.announce
	}
	if pf := cmd.Flags(); pf.Changed("verbose") {
		cfg.Log.Verbose, _ = pf.GetBool("verbose")
	}
	if pf := cmd.Flags(); pf.Changed("log-file") {
		cfg.Log.File, _ = pf.GetString("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openTransport(cfg *config.Config, tc *transfer.TransferConfig) (transport.Transport, string, error) {
	switch cfg.Transport {
	case config.TransportQUIC:
		qt, err := transport.NewQUICTransport(transport.QUICTransportConfig{
			Address:   cfg.Listen,
			QueueSize: tc.QueueSize,
		})
		if err != nil {
			return nil, "", err
		}
		return qt, qt.Addr().String(), nil
	default:
		ut, err := transport.NewUDPTransport(transport.UDPTransportConfig{Address: cfg.Listen})
		if err != nil {
			return nil, "", err
		}
		return ut, ut.LocalAddr().String(), nil
	}
}

func runReceive(cmd *cobra.Command, f receiveFlags) error {
	cfg, err := loadReceiveConfig(cmd, f)
	if err != nil {
		return err
	}
	tc, err := cfg.TransferConfig()
	if err != nil {
		return err
	}

	logPath := ""
	if f.tui {
		logPath = cfg.Log.File
	} else if cmd.Flags().Changed("log-file") {
		logPath = cfg.Log.File
	}
	logCloser, err := setupLogging(logPath, cfg.Log.Verbose)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer, err := receiver.NewImageWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	opts := []receiver.Option{
		receiver.WithImageWriter(writer),
		receiver.WithOnce(cfg.Once),
		receiver.WithUI(32),
	}

	if cfg.NATS.URL != "" {
		nc, err := publish.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		opts = append(opts, receiver.WithHandler(publish.NewNATSPublisher(nc, cfg.NATS.Subject, nc.MaxPayload())))
	}

	if cfg.Redis.Addr != "" {
		rc, err := publish.ConnectRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rc.Close()
		opts = append(opts, receiver.WithHandler(publish.NewRedisHistory(rc, cfg.Redis.Key, cfg.Redis.Limit)))
	}

	t, addr, err := openTransport(cfg, tc)
	if err != nil {
		return err
	}

	if cfg.MDNS.Announce {
		port, err := addrPort(addr)
		if err != nil {
			t.Close()
			return err
		}
		opts = append(opts, receiver.WithAnnouncement(&discovery.MDNSAdapter{}, discovery.ServiceInfo{
			Name:   cfg.MDNS.Name,
			Type:   discovery.DefaultServiceType,
			Domain: discovery.DefaultDomain,
			Port:   port,
			Text:   map[string]string{discovery.TextTransport: cfg.Transport},
		}))
	}

	app, err := receiver.NewApp(t, tc, opts...)
	if err != nil {
		t.Close()
		return err
	}

	if cfg.Once {
		// Once mode also gives up if no image shows up at all.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.wait+tc.SessionTimeout)
		defer cancel()
	}

	slog.Info("Receiver listening", "transport", cfg.Transport, "address", addr, "output", cfg.OutputDir)

	if f.tui {
		err = ui.Run(ctx, app, ui.ListenInfo{Transport: cfg.Transport, Address: addr, OutputDir: cfg.OutputDir}, tea.WithAltScreen())
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s, saving to %s\n", keyColor.Sprint("listening:"), cfg.Transport, addr, cfg.OutputDir)
		done := make(chan struct{})
		go func() {
			defer close(done)
			printUIMessages(cmd, app.UIMessages())
		}()
		err = app.Run(ctx)
		app.CloseUI()
		<-done
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if cfg.Once && app.Emitted() == 0 {
		return errors.New("no image received")
	}
	return nil
}

// printUIMessages prints what the TUI would otherwise show.
func printUIMessages(cmd *cobra.Command, msgs <-chan tea.Msg) {
	out := cmd.OutOrStdout()
	for msg := range msgs {
		switch msg := msg.(type) {
		case receiverEvent.SessionStartedMsg:
			fmt.Fprintf(out, "%s %s\n", keyColor.Sprint("receiving:"), dimColor.Sprintf("%d bytes", msg.DeclaredSize))
		case receiverEvent.ImageReadyMsg:
			printResult(out, msg.Result, msg.Path)
		case appevents.ErrorMsg:
			fmt.Fprintf(out, "%s %v\n", errColor.Sprint("error:"), msg.Err)
		}
	}
}

func addrPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return strconv.Atoi(portStr)
}
