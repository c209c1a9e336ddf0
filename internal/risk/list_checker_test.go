package risk

import (
	"context"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// onCurveAddress returns a base58 address guaranteed to decode to a
// valid ed25519 point.
func onCurveAddress() string {
	return base58.Encode(edwards25519.NewGeneratorPoint().Bytes())
}

// offCurveAddress searches deterministically for a 32-byte value that is
// not a curve point.
func offCurveAddress(t *testing.T) string {
	t.Helper()
	var buf [32]byte
	for b := 0; b < 256; b++ {
		buf[0] = byte(b)
		buf[31] = 0x07
		if !isOnCurve(buf[:]) {
			return base58.Encode(buf[:])
		}
	}
	t.Fatal("no off-curve candidate found")
	return ""
}

func TestCheckHolderRisk(t *testing.T) {
	c := NewListChecker(map[string]string{"bad-token": "top holder owns 95%"}, nil)
	ctx := context.Background()

	res, err := c.CheckHolderRisk(ctx, "bad-token")
	if err != nil {
		t.Fatalf("CheckHolderRisk failed: %v", err)
	}
	if !res.Flagged || res.Reason != "top holder owns 95%" {
		t.Errorf("expected flag with reason, got %+v", res)
	}

	res, err = c.CheckHolderRisk(ctx, "clean-token")
	if err != nil {
		t.Fatalf("CheckHolderRisk failed: %v", err)
	}
	if res.Flagged {
		t.Errorf("clean token flagged: %+v", res)
	}
}

func TestCheckCreatorRisk_Blacklist(t *testing.T) {
	addr := onCurveAddress()
	c := NewListChecker(nil, []string{addr})

	flagged, err := c.CheckCreatorRisk(context.Background(), addr)
	if err != nil {
		t.Fatalf("CheckCreatorRisk failed: %v", err)
	}
	if !flagged {
		t.Errorf("blacklisted creator not flagged")
	}
}

func TestCheckCreatorRisk_OnCurveCleanWalletPasses(t *testing.T) {
	c := NewListChecker(nil, nil)

	flagged, err := c.CheckCreatorRisk(context.Background(), onCurveAddress())
	if err != nil {
		t.Fatalf("CheckCreatorRisk failed: %v", err)
	}
	if flagged {
		t.Errorf("clean on-curve wallet flagged")
	}
}

func TestCheckCreatorRisk_OffCurveAddressFlagged(t *testing.T) {
	c := NewListChecker(nil, nil)

	flagged, err := c.CheckCreatorRisk(context.Background(), offCurveAddress(t))
	if err != nil {
		t.Fatalf("CheckCreatorRisk failed: %v", err)
	}
	if !flagged {
		t.Errorf("off-curve (program derived) creator must be flagged")
	}
}

func TestCheckCreatorRisk_MalformedAddressFlagged(t *testing.T) {
	c := NewListChecker(nil, nil)

	for _, addr := range []string{"", "not-base58-0OIl", "abc"} {
		flagged, err := c.CheckCreatorRisk(context.Background(), addr)
		if err != nil {
			t.Fatalf("CheckCreatorRisk(%q) failed: %v", addr, err)
		}
		if !flagged {
			t.Errorf("malformed creator %q must be flagged", addr)
		}
	}
}
