package engine

import (
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// ChangeReason tags every emitted event with what triggered it.
type ChangeReason string

// Change event reasons.
const (
	ReasonInitialEnumeration ChangeReason = "initial_enumeration"
	ReasonPairedAdded        ChangeReason = "paired_added"
	ReasonPairedRemoved      ChangeReason = "paired_removed"
	ReasonConnectionChanged  ChangeReason = "connection_changed"
	ReasonBLEDataUpdated     ChangeReason = "ble_data_updated"
	ReasonUnpairedSeen       ChangeReason = "unpaired_seen"
	ReasonRemovedFromCase    ChangeReason = "removed_from_case"
	ReasonAudioOutputChanged ChangeReason = "audio_output_changed"
)

// Event is one entry on the unified change-event stream.
type Event struct {
	Reason ChangeReason `json:"reason"`
	State  DeviceState  `json:"state"`
}

// PairedDevice is a snapshot from the OS pairing directory: identity and
// connection truth for one paired accessory.
type PairedDevice struct {
	ProductID proximity.ProductID `json:"product_id"`
	DeviceID  string              `json:"device_id"` // OS handle, e.g. a D-Bus object path
	Name      string              `json:"name"`
	Address   string              `json:"address"`
	Connected bool                `json:"connected"`
}

// DeviceState is the authoritative merged record for one accessory.
//
// Identity and connection fields come from the pairing directory; the
// broadcast-derived fields come from the enrichment tracker and are only
// meaningful when BroadcastSeen is true. DeviceID and Address are empty for
// accessories known only from broadcasts.
type DeviceState struct {
	ProductID proximity.ProductID `json:"product_id"`
	Model     string              `json:"model"`

	Paired    bool   `json:"paired"`
	DeviceID  string `json:"device_id,omitempty"`
	Address   string `json:"address,omitempty"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`

	// AudioDefault reports whether this accessory is the current default
	// audio output.
	AudioDefault bool `json:"audio_default"`

	// BroadcastSeen is true once at least one proximity broadcast has been
	// merged into this record.
	BroadcastSeen bool      `json:"broadcast_seen"`
	RSSI          int16     `json:"rssi,omitempty"`
	LastSeen      time.Time `json:"last_seen,omitzero"`

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

// clone returns an independent copy. Battery pointers are duplicated so a
// returned snapshot can never alias the engine's stored record.
func (s *DeviceState) clone() DeviceState {
	cpy := *s
	cpy.LeftBattery = cloneBattery(s.LeftBattery)
	cpy.RightBattery = cloneBattery(s.RightBattery)
	cpy.CaseBattery = cloneBattery(s.CaseBattery)
	return cpy
}

func cloneBattery(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// operationLock records a user-initiated connect/disconnect in flight or
// recently finished for one product ID. Transient, never persisted.
type operationLock struct {
	inProgress  bool
	completedAt time.Time
}

// active reports whether the lockout suppresses external updates: while the
// operation runs, or within the grace window after it completed.
func (l operationLock) active(now time.Time, grace time.Duration) bool {
	if l.inProgress {
		return true
	}
	if l.completedAt.IsZero() {
		return false
	}
	return now.Sub(l.completedAt) <= grace
}
