package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "devicechat instance with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "devicechat on laptop"},
				HostName:      "laptop.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"app=devicechat", "path=/", "version=1.0.0"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 8080,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "desk.local.",
				Port:     9000,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"app=devicechat"},
			},
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name: "other http service",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "ghost.local.",
				Port:     8080,
				Text:     []string{"app=devicechat"},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peer := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if peer != nil {
					t.Errorf("parseServiceEntry() = %+v, want nil", peer)
				}
				return
			}

			if peer == nil {
				t.Fatal("parseServiceEntry() = nil, want peer")
			}
			if peer.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", peer.IP, tt.wantIP)
			}
			if peer.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", peer.Port, tt.wantPort)
			}
		})
	}
}

func TestPeer_URL(t *testing.T) {
	tests := []struct {
		name string
		peer Peer
		want string
	}{
		{
			name: "ipv4 with path",
			peer: Peer{IP: "10.0.0.5", Port: 8080, Metadata: map[string]string{"path": "/"}},
			want: "http://10.0.0.5:8080/",
		},
		{
			name: "missing path",
			peer: Peer{IP: "10.0.0.5", Port: 80},
			want: "http://10.0.0.5:80/",
		},
		{
			name: "ipv6",
			peer: Peer{IP: "fe80::1", Port: 9000},
			want: "http://[fe80::1]:9000/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.peer.URL(); got != tt.want {
				t.Errorf("URL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildTXT(t *testing.T) {
	txt := BuildTXT(map[string]string{
		"version": "1.2.0",
		"app":     "devicechat",
		"flag":    "",
	})

	want := []string{"app=devicechat", "flag", "version=1.2.0"}
	if len(txt) != len(want) {
		t.Fatalf("BuildTXT() = %v, want %v", txt, want)
	}
	for i := range want {
		if txt[i] != want[i] {
			t.Errorf("BuildTXT()[%d] = %v, want %v", i, txt[i], want[i])
		}
	}
}

func TestParseTXT(t *testing.T) {
	metadata := ParseTXT([]string{"path=/", "flag", "eq=a=b"})

	if metadata["path"] != "/" {
		t.Errorf("path = %q, want /", metadata["path"])
	}
	if v, ok := metadata["flag"]; !ok || v != "" {
		t.Errorf("flag = %q (present %v), want empty and present", v, ok)
	}
	if metadata["eq"] != "a=b" {
		t.Errorf("eq = %q, want a=b", metadata["eq"])
	}
}

func TestBuildParseTXT_RoundTrip(t *testing.T) {
	in := map[string]string{"app": appTXTVal, "path": "/"}
	out := ParseTXT(BuildTXT(in))

	for k, v := range in {
		if out[k] != v {
			t.Errorf("ParseTXT(BuildTXT())[%s] = %q, want %q", k, out[k], v)
		}
	}
}
