package proximity

// AppleVendorID is the Bluetooth SIG company identifier for Apple, the key
// under which proximity pairing payloads appear in advertisement
// manufacturer-data maps.
const AppleVendorID uint16 = 0x004C

// Wire-format markers for the proximity pairing message.
const (
	packetTypeProximityPairing = 0x07
	proximityRemainingLength   = 0x19
	minMessageLength           = 27
)

// Status flag bits (byte 5). Bits 0, 4, 6 and 7 are unassigned and ignored.
const (
	flagThisPodInEar  = 0x02 // broadcasting pod is in an ear
	flagBothInCase    = 0x04 // both pods are in the case
	flagOtherPodInEar = 0x08 // non-broadcasting pod is in an ear
	flagLeftBroadcast = 0x20 // set: left pod transmitting, clear: right pod
)

// Battery/charging bits (byte 7). The low nibble is the case battery level.
const (
	chargeThisPod  = 0x10
	chargeOtherPod = 0x20
	chargeCase     = 0x40
)

// lidClosedBit (byte 8) is inverted on the wire: set means closed.
const lidClosedBit = 0x08

// batteryUnavailable is the sentinel nibble for "no reading".
const batteryUnavailable = 0x0F

// Message is a decoded proximity pairing broadcast. All per-pod fields are
// absolute left/right values; the broadcast-side-relative wire encoding is
// resolved during parsing. A Message is immutable once returned.
type Message struct {
	ProductID ProductID
	Model     string

	// Raw wire bytes, retained for diagnostics.
	StatusFlags byte
	BatteryRaw  [2]byte
	LidRaw      byte
	Color       byte

	// Battery percentages (0-100). Nil when the accessory reported the
	// level as unavailable.
	LeftBattery  *int
	RightBattery *int
	CaseBattery  *int

	LeftCharging  bool
	RightCharging bool
	CaseCharging  bool

	LeftInEar  bool
	RightInEar bool

	BothInCase bool
	LidOpen    bool
}

// ParseMessage decodes a vendor payload tagged with AppleVendorID.
//
// It returns nil for anything that is not a well-formed proximity pairing
// message for a known accessory model: payloads shorter than 27 bytes, a
// packet type other than 0x07, a remaining-length marker other than 0x19,
// or an unrecognised product ID. Nil is the uniform "not decodable" result;
// it carries no diagnostic detail because these rejections happen constantly
// in normal operation.
func ParseMessage(data []byte) *Message {
	if len(data) < minMessageLength {
		return nil
	}
	if data[0] != packetTypeProximityPairing || data[1] != proximityRemainingLength {
		return nil
	}

	// Product ID is carried low byte first at offsets 3-4.
	productID := ProductID(uint16(data[3]) | uint16(data[4])<<8)
	model, known := ModelName(productID)
	if !known {
		return nil
	}

	status := data[5]
	batteryByte := data[6]
	chargeByte := data[7]
	lidByte := data[8]

	msg := &Message{
		ProductID:   productID,
		Model:       model,
		StatusFlags: status,
		BatteryRaw:  [2]byte{batteryByte, chargeByte},
		LidRaw:      lidByte,
		Color:       data[9],
		BothInCase:  status&flagBothInCase != 0,
		LidOpen:     lidByte&lidClosedBit == 0,
		CaseBattery: batteryPercent(chargeByte & 0x0F),
		CaseCharging: chargeByte&chargeCase != 0,
	}

	// Everything below byte 5 is relative to the transmitting pod. Resolve
	// to absolute left/right here so nothing downstream ever needs to.
	broadcastingIsLeft := status&flagLeftBroadcast != 0

	thisBattery := batteryPercent(batteryByte & 0x0F)
	otherBattery := batteryPercent(batteryByte >> 4 & 0x0F)
	thisCharging := chargeByte&chargeThisPod != 0
	otherCharging := chargeByte&chargeOtherPod != 0
	thisInEar := status&flagThisPodInEar != 0
	otherInEar := status&flagOtherPodInEar != 0

	if broadcastingIsLeft {
		msg.LeftBattery, msg.RightBattery = thisBattery, otherBattery
		msg.LeftCharging, msg.RightCharging = thisCharging, otherCharging
		msg.LeftInEar, msg.RightInEar = thisInEar, otherInEar
	} else {
		msg.LeftBattery, msg.RightBattery = otherBattery, thisBattery
		msg.LeftCharging, msg.RightCharging = otherCharging, thisCharging
		msg.LeftInEar, msg.RightInEar = otherInEar, thisInEar
	}

	// A pod that is charging sits in its case; it cannot also be in an ear,
	// whatever the ear bit claims.
	if msg.LeftCharging {
		msg.LeftInEar = false
	}
	if msg.RightCharging {
		msg.RightInEar = false
	}

	return msg
}

// batteryPercent converts a wire battery nibble to a percentage.
// Levels run 0-10 in 10% steps; 15 means no reading is available.
// Levels 11-14 are out of range and reported as full.
func batteryPercent(level byte) *int {
	if level == batteryUnavailable {
		return nil
	}
	if level > 10 {
		level = 10
	}
	pct := int(level) * 10
	return &pct
}
