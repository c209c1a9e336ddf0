package domain

import "testing"

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "WrappedSol", addr: "So11111111111111111111111111111111111111112"},
		{name: "SystemProgram", addr: "11111111111111111111111111111111"},
		{name: "Empty", addr: "", wantErr: true},
		{name: "NotBase58", addr: "0OIl+/=", wantErr: true},
		{name: "TooShort", addr: "abc", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAddress(tc.addr)
			if tc.wantErr && err == nil {
				t.Errorf("ValidateAddress(%q): expected error", tc.addr)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ValidateAddress(%q): unexpected error: %v", tc.addr, err)
			}
		})
	}
}

func TestDecodeAddress(t *testing.T) {
	decoded, err := DecodeAddress("11111111111111111111111111111111")
	if err != nil {
		t.Fatalf("DecodeAddress failed: %v", err)
	}
	if len(decoded) != 32 {
		t.Fatalf("Expected 32 bytes, got %d", len(decoded))
	}
	for _, b := range decoded {
		if b != 0 {
			t.Fatal("Expected all-zero bytes for the system program address")
		}
	}

	if _, err := DecodeAddress("abc"); err == nil {
		t.Error("Expected error for short address")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusExited, StatusBadHolder, StatusNegativeDev}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	open := []Status{StatusDiscovered, StatusMonitoring, StatusBought, StatusSelling}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeBacktest, ModeVirtual, ModeLive} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Mode("paper").Valid() {
		t.Error("unknown mode should be invalid")
	}
}
