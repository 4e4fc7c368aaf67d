package http_test

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"school-quiz-service/internal/domain"
	transport "school-quiz-service/internal/transport/http"
)

func boardFor(school string, score float64) domain.Leaderboard {
	return domain.Leaderboard{
		Entries:   []domain.LeaderboardEntry{{SchoolName: school, TotalScore: score, Rank: 1}},
		UpdatedAt: time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC),
	}
}

func TestHubDeliversToAllSubscribers(t *testing.T) {
	hub := transport.NewLeaderboardHub()

	first, cancelFirst := hub.Subscribe()
	second, cancelSecond := hub.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	hub.Publish(boardFor("A", 10))

	for _, ch := range []<-chan domain.Leaderboard{first, second} {
		select {
		case lb := <-ch:
			if lb.Entries[0].SchoolName != "A" {
				t.Fatalf("unexpected board %+v", lb.Entries)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber never received the board")
		}
	}
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := transport.NewLeaderboardHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overrun the subscriber buffer without draining it. The hub must not
	// block, and the oldest snapshot gives way to the newest.
	total := 12
	for i := 1; i <= total; i++ {
		hub.Publish(boardFor(fmt.Sprintf("s%d", i), float64(i)))
	}

	var received []string
drain:
	for {
		select {
		case lb := <-ch:
			received = append(received, lb.Entries[0].SchoolName)
		default:
			break drain
		}
	}

	if len(received) == 0 || len(received) >= total {
		t.Fatalf("expected a bounded backlog, got %d snapshots", len(received))
	}
	if received[len(received)-1] != fmt.Sprintf("s%d", total) {
		t.Fatalf("newest snapshot must survive, backlog ends with %s", received[len(received)-1])
	}
	if received[0] == "s1" {
		t.Fatalf("oldest snapshot should have been dropped")
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := transport.NewLeaderboardHub()
	ch, cancel := hub.Subscribe()

	cancel()
	cancel() // idempotent

	// Publishing after cancel must not panic or deliver.
	hub.Publish(boardFor("A", 1))

	if _, open := <-ch; open {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestWSStreamSendsSnapshotThenUpdates(t *testing.T) {
	env := newServerEnv(t)
	env.seedTeams(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var frame struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}

	// Initial frame is the current board, served through the cache.
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if frame.Type != "leaderboard" {
		t.Fatalf("expected leaderboard frame, got %q", frame.Type)
	}
	if len(frame.Payload.Entries) != 2 || frame.Payload.Entries[0].SchoolName != "A" {
		t.Fatalf("unexpected initial board: %+v", frame.Payload.Entries)
	}

	// A publish reaches the connected spectator.
	env.hub.Publish(boardFor("B", 99))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read update frame: %v", err)
	}
	if frame.Type != "leaderboard" || frame.Payload.Entries[0].SchoolName != "B" {
		raw, _ := json.Marshal(frame)
		t.Fatalf("unexpected update frame: %s", raw)
	}
}
