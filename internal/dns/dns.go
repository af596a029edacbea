// Package dns resolves the relay hostname, falling back to well-known public
// resolvers when the system resolver fails (captive portals and some mobile
// carriers break local DNS more often than they break UDP).
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicDNS are queried concurrently if the local lookup fails.
var publicDNS = []string{
	"1.1.1.1",         // Cloudflare
	"1.0.0.1",         // Cloudflare
	"8.8.8.8",         // Google
	"8.8.4.4",         // Google
	"9.9.9.9",         // Quad9
	"149.112.112.112", // Quad9
}

const (
	localTimeout = 1 * time.Second
	raceTimeout  = 2 * time.Second
)

// Lookup resolves a hostname to a single IP address, preferring IPv4. The
// system resolver is tried first; on failure the public resolvers race and
// the first answer wins.
func Lookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	if ip, err := pickAddr((&net.Resolver{}).LookupHost(ctx, host)); err == nil {
		return ip, nil
	}

	return raceLookup(host)
}

func raceLookup(host string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	results := make(chan string, len(publicDNS))
	for _, server := range publicDNS {
		go func(server string) {
			r := &net.Resolver{
				PreferGo: true,
				Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
					d := new(net.Dialer)
					return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
				},
			}
			ip, err := pickAddr(r.LookupHost(ctx, host))
			if err != nil {
				results <- ""
				return
			}
			results <- ip
		}(server)
	}

	for range publicDNS {
		select {
		case ip := <-results:
			if ip != "" {
				return ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("dns: lookup of %s timed out", host)
		}
	}
	return "", fmt.Errorf("dns: all resolvers failed for %s", host)
}

func pickAddr(ips []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no addresses returned")
	}
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
