package models

// Player status values on the profile record.
const (
	StatusMonitor = "MONITOR"
)

// Detector type identifiers.
const (
	DetectorZScoreAccuracy    = "ZSCORE_ACCURACY"
	DetectorThresholdHeadshot = "THRESHOLD_HEADSHOT"
)

// DetectionOpen is the initial status of a stored detection.
const DetectionOpen = "OPEN"

// PlayerProfile is the per-player administrative record (sk = "PROFILE").
type PlayerProfile struct {
	Owner      string
	PlayerID   string
	FirstSeen  int64 // ms; set once, never overwritten
	LastSeen   int64 // ms
	EventCount int64 // monotonic
	RiskScore  float64
	Status     string
}

// PlayerFeatures is the per-player behavioral state (sk = "FEATURES").
// Counters are monotonic; the accuracy* trio is Welford state over
// per-batch session accuracy samples.
type PlayerFeatures struct {
	Owner          string
	PlayerID       string
	TotalShots     int64
	TotalHits      int64
	TotalHeadshots int64
	TotalKills     int64
	Accuracy       float64
	HeadshotRatio  float64

	AccuracySampleCount int64
	AccuracyMean        float64
	AccuracyM2          float64
	AccuracyStdDev      float64

	UpdatedAt int64 // ms
}

// Detection is an anomaly-detection result for one player.
type Detection struct {
	DetectionID  string
	Owner        string
	PlayerID     string
	DetectorType string
	Score        float64
	Threshold    float64
	Features     map[string]any // snapshot of contributing feature values
	Explanation  string
	Status       string
	CreatedAt    int64 // ms
}
