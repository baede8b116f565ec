package store

import (
	"encoding/json"
	"strconv"

	"github.com/rustcentral/behavior-api/internal/models"
)

// Attrs is the stored form of a record: every value a string. Floats cross
// this boundary as exact decimals (shortest round-trip formatting) so that
// repeated read-modify-write cycles never erode the Welford state through
// binary/decimal coercion.
type Attrs map[string]string

func (a Attrs) SetString(key, val string) { a[key] = val }

func (a Attrs) SetInt(key string, val int64) {
	a[key] = strconv.FormatInt(val, 10)
}

func (a Attrs) SetFloat(key string, val float64) {
	a[key] = strconv.FormatFloat(val, 'f', -1, 64)
}

func (a Attrs) GetString(key string) string { return a[key] }

func (a Attrs) GetInt(key string) int64 {
	if v, err := strconv.ParseInt(a[key], 10, 64); err == nil {
		return v
	}
	// Tolerate a decimal-formatted integer written by an older client.
	if f, err := strconv.ParseFloat(a[key], 64); err == nil {
		return int64(f)
	}
	return 0
}

func (a Attrs) GetFloat(key string) float64 {
	if v, err := strconv.ParseFloat(a[key], 64); err == nil {
		return v
	}
	return 0
}

// EncodeEvent builds the stored form of an interesting event. Metadata is
// persisted as a JSON-encoded string.
func EncodeEvent(evt *models.TelemetryEvent, owner string, ttl int64) Record {
	attrs := Attrs{}
	attrs.SetString("eventId", evt.EventID)
	attrs.SetString("owner", owner)
	attrs.SetString("playerId", evt.PlayerID)
	attrs.SetString("actionType", string(evt.ActionType))
	attrs.SetInt("timestamp", evt.Timestamp)
	attrs.SetString("sessionId", evt.SessionID)
	attrs.SetString("metadata", evt.Metadata.Encode())
	if evt.InterestingReason != "" {
		attrs.SetString("interestingReason", evt.InterestingReason)
	}

	return Record{
		PK:    PlayerKey(owner, evt.PlayerID),
		SK:    TimeKey(evt.Timestamp, evt.EventID),
		Attrs: attrs,
		TTL:   ttl,
	}
}

// EncodeProfile builds the stored form of a player profile. Profiles carry
// no TTL.
func EncodeProfile(p *models.PlayerProfile) Record {
	attrs := Attrs{}
	attrs.SetString("owner", p.Owner)
	attrs.SetString("playerId", p.PlayerID)
	attrs.SetInt("firstSeen", p.FirstSeen)
	attrs.SetInt("lastSeen", p.LastSeen)
	attrs.SetInt("eventCount", p.EventCount)
	attrs.SetFloat("riskScore", p.RiskScore)
	attrs.SetString("status", p.Status)

	return Record{
		PK:    PlayerKey(p.Owner, p.PlayerID),
		SK:    ProfileSortKey,
		Attrs: attrs,
	}
}

// DecodeProfile parses a stored profile. Missing fields default to zero.
func DecodeProfile(owner, playerID string, attrs Attrs) *models.PlayerProfile {
	return &models.PlayerProfile{
		Owner:      owner,
		PlayerID:   playerID,
		FirstSeen:  attrs.GetInt("firstSeen"),
		LastSeen:   attrs.GetInt("lastSeen"),
		EventCount: attrs.GetInt("eventCount"),
		RiskScore:  attrs.GetFloat("riskScore"),
		Status:     attrs.GetString("status"),
	}
}

// EncodeFeatures builds the stored form of a feature vector. Feature
// records carry no TTL.
func EncodeFeatures(f *models.PlayerFeatures) Record {
	attrs := Attrs{}
	attrs.SetString("owner", f.Owner)
	attrs.SetString("playerId", f.PlayerID)
	attrs.SetInt("totalShots", f.TotalShots)
	attrs.SetInt("totalHits", f.TotalHits)
	attrs.SetInt("totalHeadshots", f.TotalHeadshots)
	attrs.SetInt("totalKills", f.TotalKills)
	attrs.SetFloat("accuracy", f.Accuracy)
	attrs.SetFloat("headshotRatio", f.HeadshotRatio)
	attrs.SetInt("accuracySampleCount", f.AccuracySampleCount)
	attrs.SetFloat("accuracyMean", f.AccuracyMean)
	attrs.SetFloat("accuracyM2", f.AccuracyM2)
	attrs.SetFloat("accuracyStdDev", f.AccuracyStdDev)
	attrs.SetInt("updatedAt", f.UpdatedAt)

	return Record{
		PK:    PlayerKey(f.Owner, f.PlayerID),
		SK:    FeaturesSortKey,
		Attrs: attrs,
	}
}

// DecodeFeatures parses a stored feature vector. Missing fields default to
// zero, so an absent record decodes to empty prior state.
func DecodeFeatures(owner, playerID string, attrs Attrs) *models.PlayerFeatures {
	return &models.PlayerFeatures{
		Owner:               owner,
		PlayerID:            playerID,
		TotalShots:          attrs.GetInt("totalShots"),
		TotalHits:           attrs.GetInt("totalHits"),
		TotalHeadshots:      attrs.GetInt("totalHeadshots"),
		TotalKills:          attrs.GetInt("totalKills"),
		Accuracy:            attrs.GetFloat("accuracy"),
		HeadshotRatio:       attrs.GetFloat("headshotRatio"),
		AccuracySampleCount: attrs.GetInt("accuracySampleCount"),
		AccuracyMean:        attrs.GetFloat("accuracyMean"),
		AccuracyM2:          attrs.GetFloat("accuracyM2"),
		AccuracyStdDev:      attrs.GetFloat("accuracyStdDev"),
		UpdatedAt:           attrs.GetInt("updatedAt"),
	}
}

// EncodeDetection builds the stored form of a detection. The features
// snapshot is persisted as a JSON-encoded string.
func EncodeDetection(d *models.Detection, ttl int64) Record {
	features, err := json.Marshal(d.Features)
	if err != nil {
		features = []byte("{}")
	}

	attrs := Attrs{}
	attrs.SetString("detectionId", d.DetectionID)
	attrs.SetString("owner", d.Owner)
	attrs.SetString("playerId", d.PlayerID)
	attrs.SetString("detectorType", d.DetectorType)
	attrs.SetFloat("score", d.Score)
	attrs.SetFloat("threshold", d.Threshold)
	attrs.SetString("features", string(features))
	attrs.SetString("explanation", d.Explanation)
	attrs.SetString("status", d.Status)
	attrs.SetInt("createdAt", d.CreatedAt)

	return Record{
		PK:    PlayerKey(d.Owner, d.PlayerID),
		SK:    TimeKey(d.CreatedAt, d.DetectionID),
		Attrs: attrs,
		TTL:   ttl,
	}
}
