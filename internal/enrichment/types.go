package enrichment

import (
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// Advertisement is one raw BLE broadcast as delivered by the scanner.
// ManufacturerData maps Bluetooth SIG company IDs to vendor payloads.
type Advertisement struct {
	Address          string
	RSSI             int16
	Timestamp        time.Time
	ManufacturerData map[uint16][]byte
}

// Record is the latest broadcast-derived state of one accessory.
//
// Address, RSSI and UpdatedAt are metadata, not identity: the hardware
// address rotates for privacy and must never be used as a key. ProductID
// is the key.
type Record struct {
	ProductID proximity.ProductID `json:"product_id"`
	Model     string              `json:"model"`

	// Volatile metadata, excluded from semantic comparison.
	Address   string    `json:"address"`
	RSSI      int16     `json:"rssi"`
	UpdatedAt time.Time `json:"updated_at"`

	LeftBattery  *int `json:"left_battery,omitempty"`
	RightBattery *int `json:"right_battery,omitempty"`
	CaseBattery  *int `json:"case_battery,omitempty"`

	LeftCharging  bool `json:"left_charging"`
	RightCharging bool `json:"right_charging"`
	CaseCharging  bool `json:"case_charging"`

	LeftInEar  bool `json:"left_in_ear"`
	RightInEar bool `json:"right_in_ear"`

	BothInCase bool `json:"both_in_case"`
	LidOpen    bool `json:"lid_open"`
}

// SemanticallyEqual reports whether two records describe the same accessory
// state. Address, signal strength and timestamp are deliberately ignored;
// they change on nearly every broadcast and must not generate noise.
func (r Record) SemanticallyEqual(other Record) bool {
	return r.ProductID == other.ProductID &&
		batteryEqual(r.LeftBattery, other.LeftBattery) &&
		batteryEqual(r.RightBattery, other.RightBattery) &&
		batteryEqual(r.CaseBattery, other.CaseBattery) &&
		r.LeftCharging == other.LeftCharging &&
		r.RightCharging == other.RightCharging &&
		r.CaseCharging == other.CaseCharging &&
		r.LeftInEar == other.LeftInEar &&
		r.RightInEar == other.RightInEar &&
		r.BothInCase == other.BothInCase &&
		r.LidOpen == other.LidOpen
}

func batteryEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// newRecord builds a Record from a decoded message plus broadcast metadata.
func newRecord(msg *proximity.Message, adv Advertisement) Record {
	return Record{
		ProductID:     msg.ProductID,
		Model:         msg.Model,
		Address:       adv.Address,
		RSSI:          adv.RSSI,
		UpdatedAt:     adv.Timestamp,
		LeftBattery:   msg.LeftBattery,
		RightBattery:  msg.RightBattery,
		CaseBattery:   msg.CaseBattery,
		LeftCharging:  msg.LeftCharging,
		RightCharging: msg.RightCharging,
		CaseCharging:  msg.CaseCharging,
		LeftInEar:     msg.LeftInEar,
		RightInEar:    msg.RightInEar,
		BothInCase:    msg.BothInCase,
		LidOpen:       msg.LidOpen,
	}
}
