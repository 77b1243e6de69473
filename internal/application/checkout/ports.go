package checkout

import "context"

type IDGenerator interface {
	NewID() string
}

// ProfileDirectory resolves a customer's shipping profile to the destination
// location code used for fee quotes. Existence is the only business rule this
// core checks; the profile's content belongs to the customer service.
type ProfileDirectory interface {
	DestinationCode(ctx context.Context, shippingProfileID string) (string, error)
}
