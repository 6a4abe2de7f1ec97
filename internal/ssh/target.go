package ssh

import (
	"fmt"
	"net/netip"

	"github.com/declarative-routeros/rosexec/internal/constants"
	"github.com/declarative-routeros/rosexec/internal/security"
)

// Target identifies the router to log in to and the user to log in as.
// It is immutable once built.
type Target struct {
	principal string
	endpoint  netip.AddrPort
}

// NewTarget validates the user name and pins the SSH port to 22.
func NewTarget(principal string, addr netip.Addr) (Target, error) {
	if err := security.ValidatePrincipal(principal); err != nil {
		return Target{}, err
	}
	if !addr.IsValid() {
		return Target{}, fmt.Errorf("router address is not set")
	}
	return Target{
		principal: principal,
		endpoint:  netip.AddrPortFrom(addr.Unmap(), constants.DefaultPort),
	}, nil
}

// Principal returns the user name
func (t Target) Principal() string {
	return t.principal
}

// Endpoint returns the router address and port
func (t Target) Endpoint() netip.AddrPort {
	return t.endpoint
}

// IsZero reports whether t was built without NewTarget
func (t Target) IsZero() bool {
	return t.principal == "" || !t.endpoint.IsValid()
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s", t.principal, t.endpoint)
}
