package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/devicechat/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type the browser UI is advertised under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default time spent listening for peers
	DefaultBrowseTimeout = 3 * time.Second

	// appTXTKey marks a service entry as a devicechat instance
	appTXTKey = "app"
	appTXTVal = "devicechat"
)

// Peer is a devicechat browser UI advertised on the local network
type Peer struct {
	// Instance is the mDNS instance name (e.g., "devicechat on laptop")
	Instance string

	// Hostname is the mDNS hostname (e.g., "laptop.local.")
	Hostname string

	// IP is the first advertised address, IPv4 preferred
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the TXT record data (path, version, ...)
	Metadata map[string]string
}

// URL returns the browser URL for the peer
func (p *Peer) URL() string {
	path := p.Metadata["path"]
	if path == "" {
		path = "/"
	}
	host := p.IP
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%d%s", host, p.Port, path)
}

// Announcement is a live mDNS registration; call Shutdown to withdraw it
type Announcement struct {
	server *zeroconf.Server
}

// Announce advertises the browser UI listening on port.
// version is published in the TXT record so peers can show it.
func Announce(instance string, port int, version string) (*Announcement, error) {
	txt := BuildTXT(map[string]string{
		appTXTKey: appTXTVal,
		"path":    "/",
		"version": version,
	})

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Announced browser UI via mDNS",
		zap.String("instance", instance),
		zap.Int("port", port),
	)

	return &Announcement{server: server}, nil
}

// Shutdown withdraws the announcement
func (a *Announcement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Info("Withdrew mDNS announcement")
}

// FindPeers browses the local network for other devicechat browser UIs
func FindPeers(ctx context.Context, timeout time.Duration) ([]*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		peers []*Peer
		done  = make(chan struct{})
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		for entry := range entries {
			if peer := parseServiceEntry(entry); peer != nil {
				mu.Lock()
				peers = append(peers, peer)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once the context ends
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return peers, nil
}

// parseServiceEntry converts a zeroconf service entry to a Peer.
// Returns nil if the entry is not a devicechat instance or has no address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Peer {
	if entry == nil {
		return nil
	}

	metadata := ParseTXT(entry.Text)
	if metadata[appTXTKey] != appTXTVal {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	return &Peer{
		Instance: entry.Instance,
		Hostname: entry.HostName,
		IP:       ip,
		Port:     entry.Port,
		Metadata: metadata,
	}
}

// BuildTXT renders metadata as sorted "key=value" TXT records
func BuildTXT(metadata map[string]string) []string {
	txt := make([]string, 0, len(metadata))
	for k, v := range metadata {
		if v == "" {
			txt = append(txt, k)
			continue
		}
		txt = append(txt, k+"="+v)
	}
	sort.Strings(txt)
	return txt
}

// ParseTXT parses "key=value" TXT records; keys without a value map to ""
func ParseTXT(txt []string) map[string]string {
	metadata := make(map[string]string, len(txt))
	for _, record := range txt {
		parts := strings.SplitN(record, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}
