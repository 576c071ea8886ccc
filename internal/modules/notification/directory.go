package notification

import "context"

// StaticDirectory serves contacts from memory. Unknown guests resolve to an
// empty contact so message text falls back to a generic name.
type StaticDirectory map[string]Contact

func (d StaticDirectory) Contact(_ context.Context, guestID string) (Contact, error) {
	return d[guestID], nil
}
