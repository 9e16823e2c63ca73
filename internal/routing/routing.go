// Package routing resolves the payee identity an organization's QR payloads
// are built from, caching it per organization.
package routing

import (
	"context"
	"time"
)

// AllOrganizations is the invalidation scope that expires every entry.
const AllOrganizations = "*"

// Settings is an organization's payment-routing identity.
type Settings struct {
	OrganizationID string
	PayeeAddress   string
	DisplayName    string
	Primary        bool
	FetchedAt      time.Time
}

// Payload is what a payer-facing screen needs to render a payable QR code.
type Payload struct {
	RoutingID   string
	DisplayName string
	// Fallback is set when the organization has no routing settings and the
	// configured fallback identity was used instead.
	Fallback bool
}

//go:generate mockgen -source=routing.go -destination=store_mock.go -package=routing
type Store interface {
	// ActiveSettings returns the current settings of the organization, the
	// primary entry winning over newer non-primary ones. It returns
	// storage.ErrNotFound when the organization has none.
	ActiveSettings(ctx context.Context, organizationID string) (*Settings, error)
}

// Invalidator expires cached settings for one organization, or for all of
// them when organizationID is AllOrganizations.
type Invalidator interface {
	Invalidate(ctx context.Context, organizationID string) error
}
