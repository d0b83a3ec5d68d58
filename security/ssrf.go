package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
)

// LookupFunc resolves a host name to every candidate address.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("255.255.255.255/32"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	// 6to4 and IPv4-compatible addresses embed an IPv4 destination.
	netip.MustParsePrefix("2002::/16"),
	netip.MustParsePrefix("::/96"),
}

var nat64Prefix = netip.MustParsePrefix("64:ff9b::/96")

// IsDisallowed reports whether addr is loopback, private, link-local,
// carrier-grade NAT, unspecified, broadcast or multicast, including
// IPv4-mapped and NAT64 encodings of those ranges. 6to4 and IPv4-compatible
// addresses are refused outright.
func IsDisallowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.Is6() && nat64Prefix.Contains(addr) {
		b := addr.As16()
		addr = netip.AddrFrom4([4]byte{b[12], b[13], b[14], b[15]})
	}
	if !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() {
		return true
	}
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Guard blocks outbound requests to private and internal addresses.
//
// CheckURL resolves and checks a URL's host and returns the checked address
// set. Passing that set to PinAddrs makes DialContext connect to exactly those
// addresses, so nothing is re-resolved between check and connect. Hosts
// without a pinned set (for example redirect targets) are resolved and
// checked inside DialContext.
type Guard struct {
	allowPrivate bool
	lookup       LookupFunc
	dialer       *net.Dialer
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLookup replaces the DNS lookup function.
func WithLookup(fn LookupFunc) GuardOption {
	return func(g *Guard) { g.lookup = fn }
}

// WithDialer replaces the dialer used for outbound connections.
func WithDialer(d *net.Dialer) GuardOption {
	return func(g *Guard) { g.dialer = d }
}

// NewGuard creates a guard. allowPrivate disables address checks entirely.
func NewGuard(allowPrivate bool, opts ...GuardOption) *Guard {
	g := &Guard{
		allowPrivate: allowPrivate,
		lookup:       defaultLookup,
		dialer:       &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AllowPrivate reports whether checks are disabled.
func (g *Guard) AllowPrivate() bool {
	return g.allowPrivate
}

func defaultLookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// CheckURL validates the scheme and host of rawURL and, unless private
// addresses are allowed, resolves the host and rejects it when any resolved
// address is disallowed. It returns the host and the checked addresses.
func (g *Guard) CheckURL(ctx context.Context, rawURL string) (string, []netip.Addr, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.KindInvalidArgument, "invalid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, apperrors.New(apperrors.KindInvalidArgument, "only http and https URLs are supported")
	}
	host := u.Hostname()
	if host == "" {
		return "", nil, apperrors.New(apperrors.KindInvalidArgument, "URL has no host")
	}
	if g.allowPrivate {
		return host, nil, nil
	}
	addrs, err := g.CheckHost(ctx, host)
	if err != nil {
		return "", nil, err
	}
	return host, addrs, nil
}

// CheckHost resolves host and fails when any address is disallowed.
func (g *Guard) CheckHost(ctx context.Context, host string) ([]netip.Addr, error) {
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	var addrs []netip.Addr
	if literal, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{literal}
	} else {
		resolved, err := g.lookup(ctx, host)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindNetwork, fmt.Sprintf("failed to resolve host %s", host), err)
		}
		addrs = resolved
	}
	if len(addrs) == 0 {
		return nil, apperrors.Newf(apperrors.KindNetwork, "host resolved to no addresses", "host=%s", host)
	}
	if g.allowPrivate {
		return addrs, nil
	}
	for _, addr := range addrs {
		if IsDisallowed(addr) {
			return nil, apperrors.Newf(apperrors.KindSSRFBlocked, "blocked private address", "host=%s addr=%s", host, addr)
		}
	}
	return addrs, nil
}

type pinnedKey struct{}

type pinnedAddrs struct {
	host  string
	addrs []netip.Addr
}

// PinAddrs returns a context carrying the checked address set for host.
func PinAddrs(ctx context.Context, host string, addrs []netip.Addr) context.Context {
	if len(addrs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, pinnedKey{}, pinnedAddrs{host: host, addrs: addrs})
}

// DialContext connects to addr using only addresses that passed the check.
// It is intended as http.Transport.DialContext.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if g.allowPrivate {
		return g.dialer.DialContext(ctx, network, addr)
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	if pinned, ok := ctx.Value(pinnedKey{}).(pinnedAddrs); ok && strings.EqualFold(pinned.host, host) {
		addrs = pinned.addrs
	} else {
		addrs, err = g.CheckHost(ctx, host)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for _, ip := range addrs {
		if IsDisallowed(ip) {
			return nil, apperrors.Newf(apperrors.KindSSRFBlocked, "blocked private address", "host=%s addr=%s", host, ip)
		}
		conn, err := g.dialer.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			break
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses for %s", host)
	}
	return nil, lastErr
}
