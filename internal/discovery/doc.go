// Package discovery finds devices for the chat room wizard and advertises the
// browser UI on the local network.
//
// # Simulated Scan
//
// There is no radio access. Simulator.Scan waits for a fixed delay (2.5s by
// default) and then returns the mock device catalog. The scan honours context
// cancellation so a caller that abandons a scan does not leak a goroutine.
//
//	sim := discovery.NewSimulator()
//	devices, err := sim.Scan(ctx)
//
// # mDNS
//
// When the browser UI is served, Announce registers it under "_http._tcp"
// with an "app=devicechat" TXT record. FindPeers browses for other instances
// using the same record and returns their URLs.
//
//	ann, err := discovery.Announce("devicechat on laptop", 8080, version.Version)
//	defer ann.Shutdown()
//
//	peers, _ := discovery.FindPeers(ctx, discovery.DefaultBrowseTimeout)
//	for _, p := range peers {
//	    fmt.Println(p.Instance, p.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
package discovery
