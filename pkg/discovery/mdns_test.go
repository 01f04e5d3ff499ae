package discovery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceName(t *testing.T) {
	a := InstanceName("camera-host")
	b := InstanceName("camera-host")

	assert.True(t, strings.HasPrefix(a, "camera-host-"))
	assert.Len(t, a, len("camera-host-")+8)
	assert.NotEqual(t, a, b, "instance names should be unique per call")
}

func TestServiceQuery(t *testing.T) {
	assert.Equal(t, "_imgrecv._udp.local.", ServiceQuery(DefaultServiceType, DefaultDomain))
}

func TestAnnouncedText(t *testing.T) {
	text := announcedText(map[string]string{TextTransport: "quic"})
	assert.Equal(t, receiverDescription, text[TextDesc])
	assert.Equal(t, "quic", text[TextTransport])

	text = announcedText(map[string]string{TextDesc: "garage camera"})
	assert.Equal(t, "garage camera", text[TextDesc])
}

func TestBrowseTable(t *testing.T) {
	table := newBrowseTable()
	b := ServiceInfo{Name: "b", Type: DefaultServiceType, Domain: DefaultDomain, Port: 2}
	a := ServiceInfo{Name: "a", Type: DefaultServiceType, Domain: DefaultDomain, Port: 1}

	table.add(b)
	snapshot := table.add(a)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].Name)
	assert.Equal(t, "b", snapshot[1].Name)

	b.Port = 3
	snapshot = table.add(b)
	require.Len(t, snapshot, 2, "re-announcing replaces the entry")
	assert.Equal(t, 3, snapshot[1].Port)

	snapshot = table.remove(a)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "b", snapshot[0].Name)
}

func TestAnnounceRequiresName(t *testing.T) {
	err := (&MDNSAdapter{}).Announce(context.Background(), ServiceInfo{Type: DefaultServiceType})
	assert.Error(t, err)
}

func TestMDNSAdapter_AnnounceStops(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mdnsAdapter := &MDNSAdapter{}
	serviceInfo := ServiceInfo{
		Name:   "test-instance",
		Type:   "_imgrecv-test._udp",
		Domain: "local",
		Port:   9000,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdnsAdapter.Announce(ctx, serviceInfo)
	}()

	time.Sleep(50 * time.Millisecond) // Allow some time for the service to be announced
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err, "cancellation should end the announcement cleanly")
	case <-time.After(5 * time.Second):
		t.Fatalf("Service announcement did not complete in time")
	}
}

func TestMDNSAdapter_Discover(t *testing.T) {
	// Skip mDNS tests in CI environment as they may be unreliable
	if testing.Short() {
		t.Skip("Skipping mDNS test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mdnsAdapter := &MDNSAdapter{}

	serviceInfo := ServiceInfo{
		Name:   "test-instance",
		Type:   "_imgrecv-test._udp",
		Domain: "local",
		Port:   9000,
		Text:   map[string]string{TextTransport: "udp", TextPacketSize: "500"},
	}

	go func() {
		_ = mdnsAdapter.Announce(ctx, serviceInfo)
	}()
	// Allow some time for the service to be announced
	time.Sleep(300 * time.Millisecond)

	queryCtx, queryCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer queryCancel()

	outCh := mdnsAdapter.Discover(queryCtx, ServiceQuery(serviceInfo.Type, serviceInfo.Domain))
	result := <-outCh
	require.NoError(t, result.Error)
	require.NotEmpty(t, result.Services)

	found := result.Services[0]
	assert.Equal(t, serviceInfo.Name, found.Name)
	assert.Equal(t, serviceInfo.Type, found.Type)
	assert.Equal(t, serviceInfo.Domain, found.Domain)
	assert.Equal(t, serviceInfo.Port, found.Port)
	assert.Equal(t, "udp", found.Text[TextTransport])
}
