package discovery

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// Resolver turns a seed host name into IP addresses. Implementations must be
// safe for concurrent use.
type Resolver interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// ======= System resolver =======

// SystemResolver uses the Go resolver. When a nameserver is given every
// query is sent there instead of to the servers in resolv.conf.
type SystemResolver struct {
	resolver *net.Resolver
}

func NewSystemResolver(nameserver string, timeout time.Duration) *SystemResolver {
	r := &SystemResolver{resolver: net.DefaultResolver}
	if nameserver != "" {
		r.resolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: timeout}
				return d.DialContext(ctx, network, nameserver)
			},
		}
	}
	return r
}

func (r *SystemResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := r.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, ErrNoRecords
		}
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}
	return ips, nil
}

// ======= DNS resolver =======

// DNSResolver asks one nameserver for A and AAAA records directly. Truncated
// UDP answers are asked again over TCP.
type DNSResolver struct {
	udp        *dns.Client
	tcp        *dns.Client
	nameserver string
}

func NewDNSResolver(nameserver string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		udp:        &dns.Client{Net: "udp", Timeout: timeout},
		tcp:        &dns.Client{Net: "tcp", Timeout: timeout},
		nameserver: nameserver,
	}
}

// LookupIP returns the records of every query that succeeded. It fails only
// when both the A and the AAAA query fail, with the A query's error.
func (r *DNSResolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	v4, errA := r.query(ctx, host, dns.TypeA)
	v6, errAAAA := r.query(ctx, host, dns.TypeAAAA)
	if errA != nil && errAAAA != nil {
		return nil, errA
	}
	return append(v4, v6...), nil
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := r.udp.ExchangeContext(ctx, m, r.nameserver)
	if err == nil && in.Truncated {
		in, _, err = r.tcp.ExchangeContext(ctx, m, r.nameserver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s query for %s", dns.TypeToString[qtype], host)
	}
	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, ErrNoRecords
	default:
		return nil, errors.Errorf("%s query for %s: %s", dns.TypeToString[qtype], host, dns.RcodeToString[in.Rcode])
	}

	var ips []net.IP
	for _, rr := range in.Answer {
		switch rr := rr.(type) {
		case *dns.A:
			ips = append(ips, rr.A)
		case *dns.AAAA:
			ips = append(ips, rr.AAAA)
		}
	}
	return ips, nil
}
