// Package serviceability decides whether an order can be delivered to a
// pincode. Deliverable pincodes are read once at start-up from a gzipped
// list, one pincode per line, held in S3 or on local disk.
package serviceability

import (
	"context"
)

// Checker validates delivery pincodes.
type Checker interface {
	// Check returns model.ErrPincodeNotServiceable when pincode is not on the
	// deliverable list.
	Check(ctx context.Context, pincode string) error

	// Close releases the loaded list.
	Close() error
}

// PincodeSet is a read-only set of deliverable pincodes.
type PincodeSet interface {
	// Contains reports whether pincode is deliverable.
	Contains(pincode string) bool

	// Size returns the number of pincodes in the set.
	Size() int
}

// Loader reads a gzipped pincode list.
type Loader interface {
	Load(ctx context.Context, path string) (PincodeSet, error)
}
