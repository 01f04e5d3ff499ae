package discovery

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
)

const (
	DefaultServiceType = "_imgrecv._udp"
	DefaultDomain      = "local"
)

// TXT record keys announced by a receiver.
const (
	TextTransport  = "transport"
	TextPacketSize = "packet_size"
	TextDesc       = "desc"
)

type ServiceInfo struct {
	Name   string // hostname or instance name
	Type   string // service name, e.g., "_imgrecv._udp"
	Domain string // domain, e.g., "local"
	Addr   net.IP
	Port   int
	Text   map[string]string
}

// DiscoveryResult contains either a snapshot of known services or an error
type DiscoveryResult struct {
	Services []ServiceInfo
	Error    error
}

func (s ServiceInfo) key() string {
	return fmt.Sprintf("%s:%s:%s", s.Name, s.Type, s.Domain)
}

// Adapter announces this receiver and finds others.
type Adapter interface {
	Announce(ctx context.Context, service ServiceInfo) error
	Discover(ctx context.Context, service string) <-chan DiscoveryResult
}

// InstanceName builds a unique instance name so several receivers on one
// host do not collide.
func InstanceName(hostname string) string {
	return fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
}

// ServiceQuery is the fully qualified name Discover expects.
func ServiceQuery(serviceType, domain string) string {
	return fmt.Sprintf("%s.%s.", serviceType, domain)
}
