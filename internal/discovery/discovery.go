package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_freight._tcp"

// Advertiser represents an active mDNS advertisement.
type Advertiser struct {
	server *zeroconf.Server
}

// Service describes a discovered freight receiver.
type Service struct {
	Name string
	IP   net.IP
	Port int
	URL  string
}

// Advertise publishes the receiver over mDNS so senders on the same LAN can
// find it without typing an address.
func Advertise(instance string, ip net.IP, port int) (*Advertiser, error) {
	if ip == nil {
		return nil, fmt.Errorf("ip is required")
	}

	txt := []string{
		"path=/upload",
		"ip=" + ip.String(),
	}

	srv, err := zeroconf.Register(instance, serviceType, "local.", port, txt, nil)
	if err != nil {
		return nil, err
	}

	return &Advertiser{server: srv}, nil
}

// Close stops advertising.
func (a *Advertiser) Close() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Browse discovers freight receivers via mDNS.
// timeout defines how long to wait for responses.
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry)
	results := []Service{}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if len(e.AddrIPv4) == 0 {
				continue
			}
			ip := e.AddrIPv4[0]
			results = append(results, Service{
				Name: e.Instance,
				IP:   ip,
				Port: e.Port,
				URL:  fmt.Sprintf("http://%s:%d", ip.String(), e.Port),
			})
		}
	}()

	err = resolver.Browse(ctx, serviceType, "local.", entries)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	// The entries channel is closed by zeroconf when Browse returns.
	<-ctx.Done()
	<-done

	return results, nil
}

// LANAddr returns the first non-loopback private IPv4 address, or nil.
func LANAddr() net.IP {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || !ip.IsPrivate() {
				continue
			}
			return ip
		}
	}
	return nil
}
