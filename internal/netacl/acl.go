package netacl

import "net/netip"

// Policy is the allow/deny evaluation order and rule tables for one
// listener.
type Policy struct {
	AllowFirst bool
	Allow      *Table
	Deny       *Table
}

// NewPolicy builds a Policy from raw CIDR strings, as read from a
// <listener>.Allow/<listener>.Deny config key set.
func NewPolicy(allowFirst bool, allowCIDRs, denyCIDRs []string) (*Policy, error) {
	allow := NewTable()
	for _, s := range allowCIDRs {
		n, err := Parse(s)
		if err != nil {
			return nil, err
		}
		allow.Add(n)
	}
	deny := NewTable()
	for _, s := range denyCIDRs {
		n, err := Parse(s)
		if err != nil {
			return nil, err
		}
		deny.Add(n)
	}
	return &Policy{AllowFirst: allowFirst, Allow: allow, Deny: deny}, nil
}

// Evaluate computes the forbidden verdict for addr:
// the base verdict is forbidden=true; if AllowFirst, the allow pass runs
// before the deny pass (deny has the last word); otherwise the passes run
// in the opposite order. The result is a deterministic function of
// (addr, AllowFirst, Allow, Deny) independent of insertion order within
// either list, because each pass tests set membership, not a ordered scan.
func (p *Policy) Evaluate(addr netip.Addr) (forbidden bool) {
	if !addr.Is4() {
		return true
	}
	forbidden = true
	if p.AllowFirst {
		if p.Allow.Contains(addr) {
			forbidden = false
		}
		if p.Deny.Contains(addr) {
			forbidden = true
		}
	} else {
		if p.Deny.Contains(addr) {
			forbidden = true
		}
		if p.Allow.Contains(addr) {
			forbidden = false
		}
	}
	return forbidden
}
