package record

import "strings"

// keySeparator joins product and location in Key, so neither may contain it.
const keySeparator = "/"

// StockRecord tracks the quantities of one product at one location.
// It holds 0 <= reserved <= onHand <= maxCapacity after every successful call.
// It is not safe for concurrent use.
type StockRecord struct {
	productID        string
	location         string
	onHand           int32
	reserved         int32
	reorderThreshold int32
	maxCapacity      int32
}

func New(productID, location string, onHand, reorderThreshold, maxCapacity int32) (*StockRecord, error) {
	switch {
	case productID == "":
		return nil, invalidArgument("product id is required")
	case location == "":
		return nil, invalidArgument("location is required")
	case strings.Contains(productID, keySeparator):
		return nil, invalidArgument("product id %q must not contain %q", productID, keySeparator)
	case strings.Contains(location, keySeparator):
		return nil, invalidArgument("location %q must not contain %q", location, keySeparator)
	case onHand < 0:
		return nil, invalidArgument("on hand cannot be negative")
	case reorderThreshold < 0:
		return nil, invalidArgument("reorder threshold cannot be negative")
	case maxCapacity < 0:
		return nil, invalidArgument("max capacity cannot be negative")
	case onHand > maxCapacity:
		return nil, invalidArgument("on hand %d exceeds max capacity %d", onHand, maxCapacity)
	}
	return &StockRecord{
		productID:        productID,
		location:         location,
		onHand:           onHand,
		reorderThreshold: reorderThreshold,
		maxCapacity:      maxCapacity,
	}, nil
}

// Restore rebuilds a record read back from storage.
func Restore(productID, location string, onHand, reserved, reorderThreshold, maxCapacity int32) (*StockRecord, error) {
	r, err := New(productID, location, onHand, reorderThreshold, maxCapacity)
	if err != nil {
		return nil, err
	}
	if reserved < 0 || reserved > onHand {
		return nil, invalidArgument("reserved %d out of range [0, %d]", reserved, onHand)
	}
	r.reserved = reserved
	return r, nil
}

func (r *StockRecord) AddStock(amount int32) error {
	if amount < 0 {
		return invalidArgument("amount cannot be negative")
	}
	if amount > r.maxCapacity-r.onHand {
		return invalidState("adding %d to %d would exceed max capacity %d", amount, r.onHand, r.maxCapacity)
	}
	r.onHand += amount
	return nil
}

func (r *StockRecord) Reserve(amount int32) error {
	if amount < 0 {
		return invalidArgument("amount cannot be negative")
	}
	if amount > r.Available() {
		return invalidState("insufficient stock: available %d, requested %d", r.Available(), amount)
	}
	r.reserved += amount
	return nil
}

func (r *StockRecord) ReleaseReservation(amount int32) error {
	if amount < 0 {
		return invalidArgument("amount cannot be negative")
	}
	if amount > r.reserved {
		return invalidState("cannot release %d, only %d reserved", amount, r.reserved)
	}
	r.reserved -= amount
	return nil
}

// ShipReserved removes a reserved quantity from physical stock.
func (r *StockRecord) ShipReserved(amount int32) error {
	if amount < 0 {
		return invalidArgument("amount cannot be negative")
	}
	if amount > r.reserved {
		return invalidState("cannot ship %d, only %d reserved", amount, r.reserved)
	}
	r.onHand -= amount
	r.reserved -= amount
	return nil
}

func (r *StockRecord) IsReorderNeeded() bool {
	return r.Available() <= r.reorderThreshold
}

func (r *StockRecord) Available() int32 {
	return r.onHand - r.reserved
}

func (r *StockRecord) ProductID() string       { return r.productID }
func (r *StockRecord) Location() string        { return r.location }
func (r *StockRecord) OnHand() int32           { return r.onHand }
func (r *StockRecord) Reserved() int32         { return r.reserved }
func (r *StockRecord) ReorderThreshold() int32 { return r.reorderThreshold }
func (r *StockRecord) MaxCapacity() int32      { return r.maxCapacity }

// Snapshot is the read-only view of a record handed to transports and events.
type Snapshot struct {
	ProductID        string `json:"productId"`
	Location         string `json:"location"`
	OnHand           int32  `json:"onHand"`
	Reserved         int32  `json:"reserved"`
	Available        int32  `json:"available"`
	ReorderThreshold int32  `json:"reorderThreshold"`
	MaxCapacity      int32  `json:"maxCapacity"`
	ReorderNeeded    bool   `json:"reorderNeeded"`
}

func (r *StockRecord) Snapshot() Snapshot {
	return Snapshot{
		ProductID:        r.productID,
		Location:         r.location,
		OnHand:           r.onHand,
		Reserved:         r.reserved,
		Available:        r.Available(),
		ReorderThreshold: r.reorderThreshold,
		MaxCapacity:      r.maxCapacity,
		ReorderNeeded:    r.IsReorderNeeded(),
	}
}

func (r *StockRecord) Key() string {
	return Key(r.productID, r.location)
}

// Key is the printable identity of a record, used as a message key and in logs.
// It is unambiguous because New rejects the separator in both parts.
func Key(productID, location string) string {
	return productID + keySeparator + location
}
