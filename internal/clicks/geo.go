package clicks

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Location is a best-effort geo lookup result. Empty fields mean unknown.
type Location struct {
	Country string
	City    string
}

// GeoLocator resolves client IPs to locations.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// NoopLocator knows nothing about any IP.
type NoopLocator struct{}

func (NoopLocator) Locate(context.Context, string) (Location, error) { return Location{}, nil }

// GeoIPLocator reads a MaxMind City (or GeoLite2-City) database.
type GeoIPLocator struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the database at path.
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %q: %w", path, err)
	}
	return &GeoIPLocator{reader: reader}, nil
}

// Locate skips private and loopback addresses.
func (g *GeoIPLocator) Locate(_ context.Context, ip string) (Location, error) {
	addr, ok := publicAddr(ip)
	if !ok {
		return Location{}, nil
	}
	rec, err := g.reader.City(net.IP(addr.AsSlice()))
	if err != nil {
		return Location{}, fmt.Errorf("geoip lookup %s: %w", ip, err)
	}
	return Location{
		Country: strings.ToUpper(rec.Country.IsoCode),
		City:    rec.City.Names["en"],
	}, nil
}

// Close releases the database.
func (g *GeoIPLocator) Close() error {
	return g.reader.Close()
}

func publicAddr(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() || addr.IsMulticast() {
		return netip.Addr{}, false
	}
	return addr, true
}
