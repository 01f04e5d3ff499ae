package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"

	"github.com/brutella/dnssd"
)

const receiverDescription = "BLE image receiver"

// MDNSAdapter announces and browses receivers with multicast DNS.
type MDNSAdapter struct{}

// Announce responds to mDNS queries for info until ctx is done. A cancelled
// context is the normal way to stop and is not reported as an error.
func (m *MDNSAdapter) Announce(ctx context.Context, info ServiceInfo) error {
	if info.Name == "" || info.Type == "" {
		return errors.New("mDNS announcement needs a name and a service type")
	}

	service, err := dnssd.NewService(dnssd.Config{
		Name:   info.Name,
		Type:   info.Type,
		Domain: info.Domain,
		Text:   announcedText(info.Text),
		Port:   info.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create mDNS responder: %w", err)
	}
	if _, err := responder.Add(service); err != nil {
		return fmt.Errorf("failed to add mDNS service: %w", err)
	}

	slog.Info("Announcing receiver", "name", info.Name, "type", info.Type, "port", info.Port)
	if err := responder.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mDNS responder stopped: %w", err)
	}
	slog.Info("mDNS announcement stopped", "name", info.Name)
	return nil
}

// announcedText adds the receiver description unless the caller set one.
func announcedText(text map[string]string) map[string]string {
	out := make(map[string]string, len(text)+1)
	out[TextDesc] = receiverDescription
	for k, v := range text {
		out[k] = v
	}
	return out
}

// Discover browses for service and sends a full snapshot of known instances
// every time one appears or goes away. Snapshots are sorted by name and are
// dropped when the reader is behind. The channel closes when ctx is done.
func (m *MDNSAdapter) Discover(ctx context.Context, service string) <-chan DiscoveryResult {
	out := make(chan DiscoveryResult, 10)
	table := newBrowseTable()

	publish := func(r DiscoveryResult) {
		select {
		case out <- r:
		default:
		}
	}

	added := func(e dnssd.BrowseEntry) {
		publish(DiscoveryResult{Services: table.add(serviceFromEntry(e))})
	}
	removed := func(e dnssd.BrowseEntry) {
		publish(DiscoveryResult{Services: table.remove(serviceFromEntry(e))})
	}

	go func() {
		defer close(out)
		err := dnssd.LookupType(ctx, service, added, removed)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			publish(DiscoveryResult{Error: fmt.Errorf("mDNS lookup failed: %w", err)})
		}
	}()
	return out
}

func serviceFromEntry(e dnssd.BrowseEntry) ServiceInfo {
	var addr net.IP
	if len(e.IPs) > 0 {
		addr = e.IPs[0]
	}
	return ServiceInfo{
		Name:   e.Name,
		Type:   e.Type,
		Domain: e.Domain,
		Addr:   addr,
		Port:   e.Port,
		Text:   e.Text,
	}
}

// browseTable tracks instances seen while browsing. dnssd calls back from
// its own goroutine, so access is locked.
type browseTable struct {
	mu      sync.Mutex
	entries map[string]ServiceInfo
}

func newBrowseTable() *browseTable {
	return &browseTable{entries: make(map[string]ServiceInfo)}
}

func (t *browseTable) add(info ServiceInfo) []ServiceInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[info.key()] = info
	return t.snapshotLocked()
}

func (t *browseTable) remove(info ServiceInfo) []ServiceInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, info.key())
	return t.snapshotLocked()
}

func (t *browseTable) snapshotLocked() []ServiceInfo {
	snapshot := make([]ServiceInfo, 0, len(t.entries))
	for _, info := range t.entries {
		snapshot = append(snapshot, info)
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name < snapshot[j].Name })
	return snapshot
}
