package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testZone   = "seed.epeer.test."
	v4OnlyZone = "v4only.epeer.test."
	brokenZone = "broken.epeer.test."
	bigZone    = "big.epeer.test."

	bigRecords = 40
)

// serveTestZones answers the test zones:
//   - testZone: one A and one AAAA record
//   - v4OnlyZone: one A record, SERVFAIL for AAAA
//   - brokenZone: SERVFAIL for everything
//   - bigZone: an empty truncated answer over UDP, bigRecords A records over TCP
//
// and NXDOMAIN for every other name.
func serveTestZones(w dns.ResponseWriter, req *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true
	q := req.Question[0]
	hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: dns.ClassINET, Ttl: 60}
	_, overTCP := w.RemoteAddr().(*net.TCPAddr)

	switch q.Name {
	case testZone, v4OnlyZone:
		switch {
		case q.Qtype == dns.TypeA:
			m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: net.ParseIP("192.0.2.10").To4()})
		case q.Qtype == dns.TypeAAAA && q.Name == v4OnlyZone:
			m.Rcode = dns.RcodeServerFailure
		case q.Qtype == dns.TypeAAAA:
			m.Answer = append(m.Answer, &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP("2001:db8::10")})
		}
	case brokenZone:
		m.Rcode = dns.RcodeServerFailure
	case bigZone:
		if q.Qtype != dns.TypeA {
			break
		}
		if !overTCP {
			m.Truncated = true
			break
		}
		for i := 0; i < bigRecords; i++ {
			ip := net.ParseIP(fmt.Sprintf("198.51.100.%d", i+1)).To4()
			m.Answer = append(m.Answer, &dns.A{Hdr: hdr, A: ip})
		}
	default:
		m.Rcode = dns.RcodeNameError
	}
	_ = w.WriteMsg(m)
}

// startDNSServer serves the test zones over UDP and TCP on one loopback port.
func startDNSServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	pc, err := net.ListenPacket("udp", ln.Addr().String())
	require.NoError(t, err)

	handler := dns.HandlerFunc(serveTestZones)
	for _, srv := range []*dns.Server{
		{PacketConn: pc, Handler: handler},
		{Listener: ln, Handler: handler},
	} {
		srv := srv
		started := make(chan struct{})
		srv.NotifyStartedFunc = func() { close(started) }
		go func() {
			_ = srv.ActivateAndServe()
		}()
		<-started
		t.Cleanup(func() {
			_ = srv.Shutdown()
		})
	}
	return ln.Addr().String()
}

func TestDNSResolver(t *testing.T) {
	ns := startDNSServer(t)
	r := NewDNSResolver(ns, time.Second)

	ips, err := r.LookupIP(context.Background(), "seed.epeer.test")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.True(t, ips[0].Equal(net.ParseIP("192.0.2.10")))
	assert.True(t, ips[1].Equal(net.ParseIP("2001:db8::10")))

	_, err = r.LookupIP(context.Background(), "nowhere.epeer.test")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestDNSResolverKeepsRecordsWhenAAAAFails(t *testing.T) {
	r := NewDNSResolver(startDNSServer(t), time.Second)

	ips, err := r.LookupIP(context.Background(), "v4only.epeer.test")
	require.NoError(t, err)
	require.Len(t, ips, 1)
	assert.True(t, ips[0].Equal(net.ParseIP("192.0.2.10")))
}

func TestDNSResolverServerFailure(t *testing.T) {
	r := NewDNSResolver(startDNSServer(t), time.Second)

	ips, err := r.LookupIP(context.Background(), "broken.epeer.test")
	require.Error(t, err)
	assert.Empty(t, ips)
	assert.True(t, strings.HasPrefix(err.Error(), "A query for broken.epeer.test"), err.Error())
	assert.Contains(t, err.Error(), "SERVFAIL")
	assert.NotErrorIs(t, err, ErrNoRecords)
}

func TestDNSResolverRetriesTruncatedOverTCP(t *testing.T) {
	r := NewDNSResolver(startDNSServer(t), time.Second)

	ips, err := r.LookupIP(context.Background(), "big.epeer.test")
	require.NoError(t, err)
	require.Len(t, ips, bigRecords)
	assert.True(t, ips[0].Equal(net.ParseIP("198.51.100.1")))
	assert.True(t, ips[bigRecords-1].Equal(net.ParseIP(fmt.Sprintf("198.51.100.%d", bigRecords))))
}

func TestDNSResolverThroughDiscoverer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nameserver = startDNSServer(t)
	d, err := New(cfg)
	require.NoError(t, err)

	seeds := []string{"seed.epeer.test", "v4only.epeer.test", "broken.epeer.test", "nowhere.epeer.test"}
	res, err := d.Resolve(context.Background(), seeds, 8333)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.10:8333", "[2001:db8::10]:8333"}, keys(res.Addresses))
	assert.NotContains(t, res.Errors, "v4only.epeer.test")
	assert.Contains(t, res.Errors, "broken.epeer.test")
	assert.ErrorIs(t, res.Errors["nowhere.epeer.test"], ErrNoRecords)
}

func TestSystemResolverWithNameserver(t *testing.T) {
	r := NewSystemResolver(startDNSServer(t), time.Second)

	ips, err := r.LookupIP(context.Background(), testZone)
	require.NoError(t, err)
	assert.Len(t, ips, 2)
}
