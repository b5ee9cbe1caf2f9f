package bluez

import (
	"strconv"
	"strings"

	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// parseModalias extracts the vendor and product IDs from a BlueZ Modalias
// property, e.g. "bluetooth:v004Cp2014d0100". The USB prefix variant some
// accessories report is accepted too.
func parseModalias(modalias string) (vendor, product uint16, ok bool) {
	s, found := strings.CutPrefix(modalias, "bluetooth:")
	if !found {
		s, found = strings.CutPrefix(modalias, "usb:")
		if !found {
			return 0, 0, false
		}
	}

	vi := strings.Index(s, "v")
	pi := strings.Index(s, "p")
	if vi < 0 || pi < vi+5 || len(s) < pi+5 {
		return 0, 0, false
	}

	v, err := strconv.ParseUint(s[vi+1:vi+5], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseUint(s[pi+1:pi+5], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(v), uint16(p), true
}

// productIDFromModalias returns the product ID when the modalias names an
// Apple accessory of a tracked model. Everything else is not interesting.
func productIDFromModalias(modalias string) (proximity.ProductID, bool) {
	vendor, product, ok := parseModalias(modalias)
	if !ok || vendor != proximity.AppleVendorID {
		return 0, false
	}
	id := proximity.ProductID(product)
	if !proximity.KnownProduct(id) {
		return 0, false
	}
	return id, true
}
