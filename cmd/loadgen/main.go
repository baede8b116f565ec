package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// Event matches models.TelemetryEvent (wire fields only)
type Event struct {
	Owner      string         `json:"owner"`
	PlayerID   string         `json:"playerId"`
	ActionType string         `json:"actionType"`
	Timestamp  int64          `json:"timestamp"`
	SessionID  string         `json:"sessionId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func main() {
	var (
		url     = flag.String("url", "http://localhost:8080/api/v1/process/events", "processing endpoint")
		token   = flag.String("token", "dev-server-token", "server token")
		owner   = flag.String("owner", "server-001", "tenant id")
		players = flag.Int("players", 5, "players per batch")
		batches = flag.Int("batches", 1, "number of batches to send")
	)
	flag.Parse()

	for b := 0; b < *batches; b++ {
		batch := buildBatch(*owner, *players)
		if err := send(*url, *token, batch); err != nil {
			log.Fatalf("batch %d: %v", b, err)
		}
	}
}

func buildBatch(owner string, players int) map[string]any {
	now := time.Now().UnixMilli()
	var events []Event

	for i := 0; i < players; i++ {
		player := fmt.Sprintf("player-%03d", i)
		session := fmt.Sprintf("session-%d-%d", now, i)

		events = append(events, Event{
			Owner: owner, PlayerID: player, ActionType: "SESSION_START",
			Timestamp: now, SessionID: session,
		})

		// A few bursts of weapon fire with plausible accuracy
		for j := 0; j < 3; j++ {
			shots := 5 + rand.Intn(20)
			hits := rand.Intn(shots + 1)
			events = append(events, Event{
				Owner: owner, PlayerID: player, ActionType: "WEAPON_FIRED",
				Timestamp: now + int64(j+1), SessionID: session,
				Metadata: map[string]any{
					"shots":     shots,
					"hits":      hits,
					"headshots": rand.Intn(hits + 1),
					"weapon":    "rifle.ak",
				},
			})
		}

		// Routine noise that should be skipped
		events = append(events, Event{
			Owner: owner, PlayerID: player, ActionType: "PLAYER_TICK",
			Timestamp: now + 10, SessionID: session,
		})
	}

	return map[string]any{"events": events}
}

func send(url, token string, batch map[string]any) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Server-Token", token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("status=%d body=%s", resp.StatusCode, bytes.TrimSpace(body))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
