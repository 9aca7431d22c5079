package netacl

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseForms(t *testing.T) {
	cases := []struct {
		in      string
		address string
		bits    int
	}{
		{"10.0.0.1", "10.0.0.1", 32},
		{"10.0.0.0/8", "10.0.0.0", 8},
		{"10.0.0.0/255.0.0.0", "10.0.0.0", 8},
		{"127.0.0.1/32", "127.0.0.1", 32},
	}
	for _, c := range cases {
		n, err := Parse(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.bits, n.prefix.Bits(), c.in)
		require.Equal(t, c.address, n.prefix.Addr().String(), c.in)
	}
}

func TestParseHostBitsCleared(t *testing.T) {
	n, err := Parse("10.1.2.3/8")
	require.NoError(t, err)
	require.Equal(t, "10.0.0.0", n.prefix.Addr().String())
}

func TestPolicyAllowFirstDenyWins(t *testing.T) {
	p, err := NewPolicy(true, []string{"127.0.0.0/8"}, []string{"127.0.0.1/32"})
	require.NoError(t, err)

	require.True(t, p.Evaluate(netip.MustParseAddr("127.0.0.1")), "deny has last word")
	require.False(t, p.Evaluate(netip.MustParseAddr("127.0.0.2")))
}

func TestPolicyDenyFirstAllowWins(t *testing.T) {
	p, err := NewPolicy(false, []string{"127.0.0.1/32"}, []string{"127.0.0.0/8"})
	require.NoError(t, err)

	// order=deny,allow: allow has the last word here.
	require.False(t, p.Evaluate(netip.MustParseAddr("127.0.0.1")))
	require.True(t, p.Evaluate(netip.MustParseAddr("127.0.0.2")))
}

func TestPolicyOrderIndependentWithinLists(t *testing.T) {
	p1, _ := NewPolicy(true, []string{"10.0.0.0/8", "192.168.0.0/16"}, []string{"10.1.0.0/16"})
	p2, _ := NewPolicy(true, []string{"192.168.0.0/16", "10.0.0.0/8"}, []string{"10.1.0.0/16"})

	for i := 0; i < 10000; i++ {
		addr := randIPv4(t)
		require.Equal(t, p1.Evaluate(addr), p2.Evaluate(addr), addr.String())
	}
}

func TestNonIPv4AlwaysForbidden(t *testing.T) {
	p, err := NewPolicy(true, []string{"0.0.0.0/0"}, nil)
	require.NoError(t, err)
	require.True(t, p.Evaluate(netip.MustParseAddr("::1")))
}

func randIPv4(t *testing.T) netip.Addr {
	t.Helper()
	var b [4]byte
	rand.Read(b[:])
	return netip.AddrFrom4(b)
}
