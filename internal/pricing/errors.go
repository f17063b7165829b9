package pricing

import "errors"

// Resolution errors callers branch on with errors.Is. The resolver never
// substitutes a zero or default price for any of these.
var (
	// ErrNoPriceFound means the base catalog lookup for a fully specified
	// selection matched no entry.
	ErrNoPriceFound = errors.New("no price found for selection")

	// ErrNoActivityFactor means the selected activity has no factor entry.
	ErrNoActivityFactor = errors.New("no factor for activity")

	// ErrNoSurchargeFactor means a selected surcharge name has no factor entry.
	ErrNoSurchargeFactor = errors.New("no factor for surcharge")

	// ErrInvalidQuantity means the quantity is non-positive or not a finite number.
	ErrInvalidQuantity = errors.New("quantity must be a positive number")

	// ErrUnknownComponent means the component name is absent from the catalog.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrIncompleteSelection means required fields are still unset. This is
	// the expected "not yet resolvable" state while the user is picking
	// fields; the UI shows a blank price, not an error.
	ErrIncompleteSelection = errors.New("selection incomplete")
)
