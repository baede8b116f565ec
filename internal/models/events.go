package models

// ActionType identifies what a telemetry event describes.
type ActionType string

const (
	ActionSessionStart    ActionType = "SESSION_START"
	ActionSessionEnd      ActionType = "SESSION_END"
	ActionPlayerKilled    ActionType = "PLAYER_KILLED"
	ActionPlayerReported  ActionType = "PLAYER_REPORTED"
	ActionPlayerViolation ActionType = "PLAYER_VIOLATION"
	ActionWeaponFired     ActionType = "WEAPON_FIRED"
	ActionPlayerAttack    ActionType = "PLAYER_ATTACK"

	// Routine high-volume types. Processed for statistics, not stored.
	ActionPlayerTick  ActionType = "PLAYER_TICK"
	ActionPlayerInput ActionType = "PLAYER_INPUT"
	ActionItemLooted  ActionType = "ITEM_LOOTED"
)

// alwaysStore is the set of action types that are unconditionally retained:
// session boundaries and significant player actions.
var alwaysStore = map[ActionType]bool{
	ActionSessionStart:    true,
	ActionSessionEnd:      true,
	ActionPlayerKilled:    true,
	ActionPlayerReported:  true,
	ActionPlayerViolation: true,
}

// AlwaysStore reports whether events of this type are retained regardless
// of their metrics. Unknown types are treated as routine.
func (a ActionType) AlwaysStore() bool {
	return alwaysStore[a]
}

// TelemetryEvent is a single per-player action reported by a game server.
type TelemetryEvent struct {
	EventID    string     `json:"eventId,omitempty"`
	Owner      string     `json:"owner"`
	PlayerID   string     `json:"playerId"`
	ActionType ActionType `json:"actionType"`
	Timestamp  int64      `json:"timestamp"`
	SessionID  string     `json:"sessionId,omitempty"`
	Metadata   Metadata   `json:"metadata,omitempty"`

	// Retention tagging, set during feature extraction. Not wire fields.
	Interesting       bool   `json:"-"`
	InterestingReason string `json:"-"`
}

// ProcessResponse is the body returned by the processing endpoint.
type ProcessResponse struct {
	Success           bool    `json:"success"`
	EventsReceived    int     `json:"eventsReceived"`
	EventsStored      int     `json:"eventsStored"`
	EventsSkipped     int     `json:"eventsSkipped"`
	PlayersUpdated    int     `json:"playersUpdated"`
	DetectionsCreated int     `json:"detectionsCreated"`
	ProcessingTimeMs  float64 `json:"processingTimeMs"`
	RequestID         string  `json:"requestId"`
}
