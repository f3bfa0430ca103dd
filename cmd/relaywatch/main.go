// Command relaywatch opens a live view and prints the view every time the server asks
// for a refresh. It is a reference client for the live endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pulse/internal/live"
	"pulse/internal/realtime"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	token := flag.String("token", os.Getenv("PULSE_TOKEN"), "Bearer token of the viewer")
	view := flag.String("view", realtime.ViewFeed, "Live view to watch")
	id := flag.String("id", "", "Subject of the view (post, profile or counterparty id)")
	flag.Parse()

	path, err := viewPath(*view, *id)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, liveURL(*host, *token, *view, *id), nil)
	if err != nil {
		log.Fatalf("❌ Live connection failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("✅ Watching %s", *view)

	signals := make(chan struct{}, 1)
	go readRefreshes(conn, signals)

	client := &http.Client{Timeout: 5 * time.Second}
	session := realtime.NewSession(*view, signals, func(ctx context.Context) (json.RawMessage, error) {
		return fetch(ctx, client, "http://"+*host+path, *token)
	})
	session.Run(ctx, func(body json.RawMessage) {
		fmt.Printf("[%s] %s\n", time.Now().Format(time.TimeOnly), body)
	})
}

// readRefreshes turns refresh messages into coalesced signals and closes signals when
// the connection ends.
func readRefreshes(conn *websocket.Conn, signals chan<- struct{}) {
	defer close(signals)
	for {
		var ev live.RefreshEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("live connection closed")
			}
			return
		}
		if ev.Type != "refresh" {
			log.WithField("type", ev.Type).Warn("unexpected live event")
			continue
		}
		select {
		case signals <- struct{}{}:
		default:
		}
	}
}

func liveURL(host, token, view, id string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("view", view)
	if id != "" {
		q.Set("id", id)
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/live", RawQuery: q.Encode()}
	return u.String()
}

// viewPath maps a live view to the endpoint that serves its data.
func viewPath(view, id string) (string, error) {
	if _, err := realtime.TopicsFor(view, "viewer", id); err != nil {
		return "", err
	}
	switch view {
	case realtime.ViewFeed:
		return "/api/feed", nil
	case realtime.ViewTrending:
		return "/api/trending", nil
	case realtime.ViewPost:
		return "/api/posts/" + id, nil
	case realtime.ViewComments:
		return "/api/posts/" + id + "/comments", nil
	case realtime.ViewNotifications:
		// the inbox marks everything read, the counter does not
		return "/api/notifications/unread", nil
	case realtime.ViewConversations:
		return "/api/conversations", nil
	case realtime.ViewThread:
		return "/api/conversations/" + id, nil
	case realtime.ViewProfile:
		return "/api/users/" + id + "/stats", nil
	}
	return "", fmt.Errorf("view %q has no endpoint", view)
}

func fetch(ctx context.Context, client *http.Client, target, token string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", target, resp.StatusCode, body)
	}
	return json.RawMessage(body), nil
}
