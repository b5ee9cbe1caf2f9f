package proximity

import "testing"

// buildMessage assembles a minimal valid proximity pairing payload.
// Defaults describe a known product with no readings.
func buildMessage(productID ProductID, status, battery, charge, lid byte) []byte {
	data := make([]byte, minMessageLength)
	data[0] = packetTypeProximityPairing
	data[1] = proximityRemainingLength
	data[3] = byte(productID)
	data[4] = byte(productID >> 8)
	data[5] = status
	data[6] = battery
	data[7] = charge
	data[8] = lid
	return data
}

func pct(t *testing.T, v *int) int {
	t.Helper()
	if v == nil {
		t.Fatal("expected battery reading, got nil")
	}
	return *v
}

func TestParseMessageRejectsMalformedPayloads(t *testing.T) {
	valid := buildMessage(0x2014, 0, 0, 0, 0)

	tests := []struct {
		name string
		data []byte
	}{
		{"nil payload", nil},
		{"empty payload", []byte{}},
		{"one byte short", valid[:minMessageLength-1]},
		{"wrong packet type", append([]byte{0x10}, valid[1:]...)},
		{"wrong remaining length", func() []byte {
			d := buildMessage(0x2014, 0, 0, 0, 0)
			d[1] = 0x18
			return d
		}()},
		{"unknown product id", buildMessage(0xBEEF, 0, 0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := ParseMessage(tt.data); msg != nil {
				t.Errorf("ParseMessage() = %+v, want nil", msg)
			}
		})
	}
}

func TestParseMessageShortLengthsAllRejected(t *testing.T) {
	valid := buildMessage(0x2014, 0, 0, 0, 0)
	for length := 0; length < minMessageLength; length++ {
		if msg := ParseMessage(valid[:length]); msg != nil {
			t.Errorf("ParseMessage(len=%d) decoded, want nil", length)
		}
	}
}

func TestParseMessageProductID(t *testing.T) {
	// Wire bytes are already low byte first: 0x14 0x20 reads as 0x2014.
	data := buildMessage(0x2014, 0, 0, 0, 0)
	if data[3] != 0x14 || data[4] != 0x20 {
		t.Fatalf("fixture bytes wrong: % X", data[3:5])
	}

	msg := ParseMessage(data)
	if msg == nil {
		t.Fatal("ParseMessage() = nil, want message")
	}
	if msg.ProductID != 0x2014 {
		t.Errorf("ProductID = %s, want 0x2014", msg.ProductID)
	}
	if msg.Model != "AirPods Pro (2nd generation)" {
		t.Errorf("Model = %q", msg.Model)
	}
}

func TestParseMessageBroadcastSideSymmetry(t *testing.T) {
	// Left pod transmitting: its own battery (8) in the low nibble, the
	// right pod's (9) in the high nibble.
	left := ParseMessage(buildMessage(0x200E, flagLeftBroadcast, 0x98, 0x0F, 0))
	// Same physical situation seen from the right pod: nibbles swap.
	right := ParseMessage(buildMessage(0x200E, 0x00, 0x89, 0x0F, 0))

	for name, msg := range map[string]*Message{"left broadcast": left, "right broadcast": right} {
		if msg == nil {
			t.Fatalf("%s: not decodable", name)
		}
		if got := pct(t, msg.LeftBattery); got != 80 {
			t.Errorf("%s: LeftBattery = %d, want 80", name, got)
		}
		if got := pct(t, msg.RightBattery); got != 90 {
			t.Errorf("%s: RightBattery = %d, want 90", name, got)
		}
	}
}

func TestParseMessageChargingSideResolution(t *testing.T) {
	// Right pod transmitting and charging; the left (other) pod is not.
	msg := ParseMessage(buildMessage(0x2014, 0x00, 0x55, chargeThisPod|0x05, 0))
	if msg == nil {
		t.Fatal("not decodable")
	}
	if !msg.RightCharging || msg.LeftCharging {
		t.Errorf("charging = left:%v right:%v, want right only", msg.LeftCharging, msg.RightCharging)
	}
	if got := pct(t, msg.CaseBattery); got != 50 {
		t.Errorf("CaseBattery = %d, want 50", got)
	}
	if msg.CaseCharging {
		t.Error("CaseCharging = true, want false")
	}
}

func TestParseMessageChargingPodIsNeverInEar(t *testing.T) {
	// Left pod transmitting, claims in-ear, but is also charging.
	status := byte(flagLeftBroadcast | flagThisPodInEar | flagOtherPodInEar)
	msg := ParseMessage(buildMessage(0x2014, status, 0x44, chargeThisPod, 0))
	if msg == nil {
		t.Fatal("not decodable")
	}
	if msg.LeftInEar {
		t.Error("LeftInEar = true for a charging pod, want false")
	}
	if !msg.RightInEar {
		t.Error("RightInEar = false, want true")
	}
}

func TestParseMessageBothInEarFromEitherSide(t *testing.T) {
	// The same both-pods-in-ear situation broadcast from each side must
	// decode identically.
	tests := []struct {
		name   string
		status byte
	}{
		{"left broadcast both in ear", 0x2A},
		{"right broadcast both in ear", 0x0A},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ParseMessage(buildMessage(0x2014, tt.status, 0x99, 0, 0))
			if msg == nil {
				t.Fatal("not decodable")
			}
			if !msg.LeftInEar || !msg.RightInEar {
				t.Errorf("in ear = left:%v right:%v, want both true", msg.LeftInEar, msg.RightInEar)
			}
		})
	}
}

func TestParseMessageLidBitIsInverted(t *testing.T) {
	open := ParseMessage(buildMessage(0x2013, 0, 0, 0, 0x00))
	closed := ParseMessage(buildMessage(0x2013, 0, 0, 0, 0x08))

	if open == nil || closed == nil {
		t.Fatal("not decodable")
	}
	if !open.LidOpen {
		t.Error("lid byte 0x00: LidOpen = false, want true")
	}
	if closed.LidOpen {
		t.Error("lid byte 0x08: LidOpen = true, want false")
	}
}

func TestParseMessageUnavailableBattery(t *testing.T) {
	// All three levels at 0xF: every reading absent, never 150%.
	msg := ParseMessage(buildMessage(0x200A, 0, 0xFF, 0x0F, 0))
	if msg == nil {
		t.Fatal("not decodable")
	}
	if msg.LeftBattery != nil {
		t.Errorf("LeftBattery = %d, want nil", *msg.LeftBattery)
	}
	if msg.RightBattery != nil {
		t.Errorf("RightBattery = %d, want nil", *msg.RightBattery)
	}
	if msg.CaseBattery != nil {
		t.Errorf("CaseBattery = %d, want nil", *msg.CaseBattery)
	}
}

func TestParseMessageBothInCaseFlag(t *testing.T) {
	msg := ParseMessage(buildMessage(0x200F, flagBothInCase, 0, 0, 0))
	if msg == nil {
		t.Fatal("not decodable")
	}
	if !msg.BothInCase {
		t.Error("BothInCase = false, want true")
	}
}

func TestParseMessageIgnoresUnassignedStatusBits(t *testing.T) {
	// Bits 0, 4, 6, 7 carry no meaning and must not affect decoding.
	plain := ParseMessage(buildMessage(0x2014, 0x2A, 0x98, 0, 0))
	noisy := ParseMessage(buildMessage(0x2014, 0x2A|0x01|0x10|0x40|0x80, 0x98, 0, 0))

	if plain == nil || noisy == nil {
		t.Fatal("not decodable")
	}
	if plain.LeftInEar != noisy.LeftInEar || plain.RightInEar != noisy.RightInEar ||
		pct(t, plain.LeftBattery) != pct(t, noisy.LeftBattery) {
		t.Error("unassigned status bits changed the decoded result")
	}
}
