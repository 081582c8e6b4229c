// cmd/syncclient/main.go
// Offline sync client daemon: polls a tournament's server endpoint on
// an interval, pulling new log entries and pushing back any local
// changes it has queued, using the engine's own FatLog/SyncRequest
// wire types so the client and server speak exactly one protocol.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tournament-engine/internal/syncengine"
)

func main() {
	var (
		serverURL    = flag.String("server", "http://localhost:8080", "tournament-engine server base URL")
		tournamentID = flag.String("tournament", "", "tournament id to sync")
		token        = flag.String("token", "", "bearer token for authenticated requests")
		interval     = flag.Duration("interval", 10*time.Second, "poll interval")
	)
	flag.Parse()

	if *tournamentID == "" {
		log.Fatal("sync client: -tournament is required")
	}
	tid, err := uuid.Parse(*tournamentID)
	if err != nil {
		log.Fatalf("sync client: invalid tournament id: %v", err)
	}

	logger := log.New(os.Stdout, "[syncclient] ", log.LstdFlags)
	client := &Client{
		baseURL:      *serverURL,
		token:        *token,
		tournamentID: tid,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Println("shutting down")
		cancel()
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		if err := client.syncOnce(ctx); err != nil {
			logger.Printf("sync failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Client is a minimal offline sync daemon: it remembers the last
// version it pulled and replays its own pending writes (if any) as a
// FatLog tail on the next push.
type Client struct {
	baseURL      string
	token        string
	tournamentID uuid.UUID
	httpClient   *http.Client
	logger       *log.Logger

	lastVersion *uuid.UUID
	pending     *syncengine.FatLog
}

func (c *Client) syncOnce(ctx context.Context) error {
	pulled, err := c.pull(ctx)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	c.logger.Printf("pulled %d log entries", len(pulled.Log))
	if tip := pulled.Tip(); tip != nil {
		c.lastVersion = tip
	}

	if c.pending == nil || c.pending.IsEmpty() {
		return nil
	}

	resp, err := c.push(ctx, *c.pending)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if resp.Outcome == syncengine.OutcomeSuccess {
		c.pending = nil
		c.lastVersion = resp.NewLastCommonAncestor
	} else {
		c.logger.Printf("push rejected: %s", resp.RejectReason)
	}
	return nil
}

func (c *Client) pull(ctx context.Context) (*syncengine.FatLog, error) {
	url := fmt.Sprintf("%s/tournament/%s/sync", c.baseURL, c.tournamentID)
	if c.lastVersion != nil {
		url += "?since=" + c.lastVersion.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", res.Status)
	}

	var fat syncengine.FatLog
	if err := json.NewDecoder(res.Body).Decode(&fat); err != nil {
		return nil, err
	}
	return &fat, nil
}

func (c *Client) push(ctx context.Context, fat syncengine.FatLog) (*syncengine.SyncRequestResponse, error) {
	body, err := json.Marshal(&syncengine.SyncRequest{Log: fat, LastCommonAncestor: c.lastVersion})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/tournament/%s/sync", c.baseURL, c.tournamentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", res.Status)
	}

	var out syncengine.SyncRequestResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
