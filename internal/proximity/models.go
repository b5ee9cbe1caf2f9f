package proximity

import "fmt"

// ProductID is the stable 16-bit accessory model identifier carried in
// proximity pairing messages. It is the merge key used across the whole
// system in place of the rotating hardware address.
type ProductID uint16

// String formats the ID the way it appears in packet dumps.
func (id ProductID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}

// modelNames maps known product IDs to marketing names. Only accessories
// in this table are tracked; everything else is filtered at decode time.
var modelNames = map[ProductID]string{
	0x2002: "AirPods (1st generation)",
	0x200F: "AirPods (2nd generation)",
	0x2013: "AirPods (3rd generation)",
	0x200E: "AirPods Pro",
	0x2014: "AirPods Pro (2nd generation)",
	0x2024: "AirPods Pro (2nd generation, USB-C)",
	0x200A: "AirPods Max",
	0x2012: "Beats Fit Pro",
}

// ModelName returns the human-readable model name for a product ID.
// An unrecognised ID returns ok=false; this is an expected outcome,
// not an error, and callers must treat such packets as uninteresting.
func ModelName(id ProductID) (name string, ok bool) {
	name, ok = modelNames[id]
	return name, ok
}

// KnownProduct reports whether the product ID belongs to a tracked model.
func KnownProduct(id ProductID) bool {
	_, ok := modelNames[id]
	return ok
}
