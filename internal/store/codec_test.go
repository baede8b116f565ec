package store

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rustcentral/behavior-api/internal/models"
)

func TestAttrsFloatExactDecimal(t *testing.T) {
	// Floats must cross the store boundary as exact decimal strings; no
	// scientific notation, no precision loss on round trip.
	tests := []struct {
		val  float64
		want string
	}{
		{0, "0"},
		{0.8, "0.8"},
		{0.1, "0.1"},
		{100.0, "100"},
		{0.3333333333333333, "0.3333333333333333"},
		{1e-9, "0.000000001"},
	}

	for _, tt := range tests {
		a := Attrs{}
		a.SetFloat("v", tt.val)
		if got := a["v"]; got != tt.want {
			t.Errorf("SetFloat(%v) stored %q, want %q", tt.val, got, tt.want)
		}
		if strings.ContainsAny(a["v"], "eE") {
			t.Errorf("SetFloat(%v) used exponent notation: %q", tt.val, a["v"])
		}
		if back := a.GetFloat("v"); back != tt.val {
			t.Errorf("round trip %v -> %q -> %v", tt.val, a["v"], back)
		}
	}
}

func TestAttrsIntTolerance(t *testing.T) {
	a := Attrs{"n": "42", "d": "42.0", "bad": "x"}
	if got := a.GetInt("n"); got != 42 {
		t.Errorf("GetInt(n) = %d", got)
	}
	if got := a.GetInt("d"); got != 42 {
		t.Errorf("GetInt on decimal-formatted integer = %d, want 42", got)
	}
	if got := a.GetInt("bad"); got != 0 {
		t.Errorf("GetInt on garbage = %d, want 0", got)
	}
	if got := a.GetInt("missing"); got != 0 {
		t.Errorf("GetInt on missing = %d, want 0", got)
	}
}

func TestKeys(t *testing.T) {
	if got := PlayerKey("server-001", "p1"); got != "server-001#p1" {
		t.Errorf("PlayerKey = %q", got)
	}
	if got := TimeKey(1234567890000, "abc"); got != "1234567890000#abc" {
		t.Errorf("TimeKey = %q", got)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	p := &models.PlayerProfile{
		Owner:      "o1",
		PlayerID:   "p1",
		FirstSeen:  1000,
		LastSeen:   2000,
		EventCount: 17,
		RiskScore:  42.5,
		Status:     models.StatusMonitor,
	}

	rec := EncodeProfile(p)
	if rec.PK != "o1#p1" || rec.SK != ProfileSortKey {
		t.Fatalf("key = %s/%s", rec.PK, rec.SK)
	}
	if rec.TTL != 0 {
		t.Errorf("profile records must not expire, TTL = %d", rec.TTL)
	}

	back := DecodeProfile("o1", "p1", rec.Attrs)
	if *back != *p {
		t.Errorf("round trip: got %+v, want %+v", back, p)
	}
}

func TestFeaturesRoundTrip(t *testing.T) {
	f := &models.PlayerFeatures{
		Owner:               "o1",
		PlayerID:            "p1",
		TotalShots:          1010,
		TotalHits:           902,
		TotalHeadshots:      80,
		TotalKills:          12,
		Accuracy:            902.0 / 1010.0,
		HeadshotRatio:       80.0 / 902.0,
		AccuracySampleCount: 151,
		AccuracyMean:        0.4980132450331126,
		AccuracyM2:          1.5894,
		AccuracyStdDev:      0.10260577727628617,
		UpdatedAt:           999,
	}

	rec := EncodeFeatures(f)
	if rec.SK != FeaturesSortKey {
		t.Fatalf("sk = %s", rec.SK)
	}
	if rec.TTL != 0 {
		t.Errorf("feature records must not expire, TTL = %d", rec.TTL)
	}

	back := DecodeFeatures("o1", "p1", rec.Attrs)
	if *back != *f {
		t.Errorf("round trip: got %+v, want %+v", back, f)
	}
}

func TestDecodeFeaturesEmpty(t *testing.T) {
	// Absent record -> empty prior state, all zeros.
	f := DecodeFeatures("o1", "p1", nil)
	if f.TotalShots != 0 || f.AccuracySampleCount != 0 || f.AccuracyMean != 0 {
		t.Errorf("empty decode not zeroed: %+v", f)
	}
}

func TestEncodeEvent(t *testing.T) {
	evt := &models.TelemetryEvent{
		EventID:    "e1",
		Owner:      "ignored", // key owner comes from the batch tenant
		PlayerID:   "p1",
		ActionType: models.ActionWeaponFired,
		Timestamp:  1700000000000,
		SessionID:  "s1",
		Metadata:   models.Metadata{"shots": float64(10)},
	}
	evt.Interesting = true
	evt.InterestingReason = "high_accuracy:1.00"

	rec := EncodeEvent(evt, "o1", 1700086400)
	if rec.PK != "o1#p1" {
		t.Errorf("pk = %s", rec.PK)
	}
	if rec.SK != "1700000000000#e1" {
		t.Errorf("sk = %s", rec.SK)
	}
	if rec.TTL != 1700086400 {
		t.Errorf("ttl = %d", rec.TTL)
	}
	if rec.Attrs.GetString("owner") != "o1" {
		t.Errorf("stored owner = %s, want batch tenant", rec.Attrs.GetString("owner"))
	}
	if rec.Attrs.GetString("interestingReason") != "high_accuracy:1.00" {
		t.Errorf("interestingReason = %q", rec.Attrs.GetString("interestingReason"))
	}

	// Metadata is persisted as a JSON-encoded string.
	var meta map[string]any
	if err := json.Unmarshal([]byte(rec.Attrs.GetString("metadata")), &meta); err != nil {
		t.Fatalf("metadata attr is not JSON: %v", err)
	}
	if meta["shots"] != float64(10) {
		t.Errorf("metadata shots = %v", meta["shots"])
	}
}

func TestEncodeDetection(t *testing.T) {
	d := &models.Detection{
		DetectionID:  "d1",
		Owner:        "o1",
		PlayerID:     "p1",
		DetectorType: models.DetectorZScoreAccuracy,
		Score:        4.0,
		Threshold:    3.0,
		Features: map[string]any{
			"accuracy": 0.9,
			"zScore":   -4.0,
		},
		Explanation: "Accuracy z-score -4.00 exceeds threshold 3.0",
		Status:      models.DetectionOpen,
		CreatedAt:   1700000000000,
	}

	rec := EncodeDetection(d, 1700086400)
	if rec.PK != "o1#p1" || rec.SK != "1700000000000#d1" {
		t.Fatalf("key = %s/%s", rec.PK, rec.SK)
	}
	if rec.Attrs.GetFloat("score") != 4.0 {
		t.Errorf("score = %s", rec.Attrs.GetString("score"))
	}
	if rec.Attrs.GetString("status") != "OPEN" {
		t.Errorf("status = %s", rec.Attrs.GetString("status"))
	}

	// The features snapshot round-trips through its JSON string, sign of
	// the z-score included.
	var snap map[string]any
	if err := json.Unmarshal([]byte(rec.Attrs.GetString("features")), &snap); err != nil {
		t.Fatalf("features attr is not JSON: %v", err)
	}
	if snap["zScore"] != float64(-4.0) {
		t.Errorf("zScore = %v, want -4", snap["zScore"])
	}
}
