// Package netacl implements IPv4-only CIDR allow/deny evaluation for
// listeners. Containment is backed by github.com/gaissmai/bart, a
// compressed CIDR routing table, so a listener with many allow/deny entries
// still evaluates in near-constant time instead of a linear scan of
// net.IPNet values.
package netacl

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/gaissmai/bart"
)

// Network is a single parsed CIDR entry: (address, netmask), both 32-bit
// IPv4 values. Immutable after construction; the invariant
// address & ^netmask == 0 (host bits cleared) is enforced in Parse.
type Network struct {
	address uint32
	netmask uint32
	prefix  netip.Prefix
}

// Parse accepts "A.B.C.D", "A.B.C.D/prefixlen" (0..32) or "A.B.C.D/E.F.G.H".
func Parse(s string) (Network, error) {
	addrPart, maskPart, hasSlash := strings.Cut(s, "/")

	ip, err := parseIPv4(addrPart)
	if err != nil {
		return Network{}, fmt.Errorf("netacl: %q: %w", s, err)
	}

	var netmask uint32 = 0xffffffff
	if hasSlash {
		if strings.Contains(maskPart, ".") {
			maskIP, err := parseIPv4(maskPart)
			if err != nil {
				return Network{}, fmt.Errorf("netacl: %q: bad netmask: %w", s, err)
			}
			netmask = maskIP
		} else {
			n, err := strconv.Atoi(maskPart)
			if err != nil || n < 0 || n > 32 {
				return Network{}, fmt.Errorf("netacl: %q: bad prefix length", s)
			}
			if n == 0 {
				netmask = 0
			} else {
				netmask = ^uint32(0) << (32 - n)
			}
		}
	}

	address := ip & netmask
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], address)
	bits := prefixLen(netmask)
	prefix := netip.PrefixFrom(netip.AddrFrom4(b), bits)

	return Network{address: address, netmask: netmask, prefix: prefix}, nil
}

// MustParse is Parse but panics on error, for statically-known CIDR
// literals (tests, defaults).
func MustParse(s string) Network {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

func parseIPv4(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	addr4 := addr
	if addr.Is4In6() {
		addr4 = addr.Unmap()
	}
	if !addr4.Is4() {
		return 0, fmt.Errorf("not an IPv4 address: %s", s)
	}
	b := addr4.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

func prefixLen(mask uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if mask&(1<<uint(i)) == 0 {
			break
		}
		n++
	}
	return n
}

// Contains reports whether addr (an IPv4 netip.Addr) falls within n.
func (n Network) Contains(addr netip.Addr) bool {
	if !addr.Is4() {
		return false
	}
	return n.prefix.Contains(addr)
}

// Table is a set of Networks evaluated together (an allow-list or a
// deny-list); backed by a bart.Table for longest-prefix-match lookups.
type Table struct {
	t   bart.Table[bool]
	nets []Network
}

// NewTable builds a Table from the given networks.
func NewTable(nets ...Network) *Table {
	t := &Table{}
	for _, n := range nets {
		t.Add(n)
	}
	return t
}

// Add inserts a network into the table.
func (t *Table) Add(n Network) {
	t.nets = append(t.nets, n)
	t.t.Insert(n.prefix, true)
}

// Contains reports whether addr matches any network in the table.
func (t *Table) Contains(addr netip.Addr) bool {
	if t == nil {
		return false
	}
	_, ok := t.t.Lookup(addr)
	return ok
}

// Len reports how many networks were added.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nets)
}
