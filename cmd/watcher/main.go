// watcher is a headless client of the sync core: it logs in, opens the
// subscription buckets for that user, and prints the reconciled store every
// time a snapshot lands. Useful for watching the event stream during
// development without a frontend.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/devcollab/platform/backend/internal/client"
	"github.com/devcollab/platform/backend/pkg/logger"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "base URL of the backend")
		username = flag.String("user", "admin", "login name")
		password = flag.String("password", "admin", "password")
		project  = flag.Uint("project", 0, "project id to open, 0 for none")
		debug    = flag.Bool("debug", false, "verbose logging")
	)
	flag.Parse()

	if *debug {
		logger.Init("debug")
	}

	token, userID, err := login(*server, *username, *password)
	if err != nil {
		logger.Fatalf("Login failed: %v", err)
	}

	owned, err := ownedProjects(*server, token)
	if err != nil {
		logger.Fatalf("Failed to list projects: %v", err)
	}

	viewer := client.Viewer{
		UserID:          userID,
		OwnedProjectIDs: owned,
		ActiveProjectID: uint(*project),
	}

	store := client.NewStore()
	source := &client.SSESource{BaseURL: *server, Token: token}

	mgr := client.NewManager(source, store, viewer,
		func(b client.Bucket) { printBucket(store, b) },
		func(e *client.SubscriptionError) {
			logger.Warn().Err(e).Str("bucket", string(e.Bucket)).Msg("subscription lost")
		},
	)
	defer mgr.Close()

	logger.Infof("Watching as %s (user %d, %d owned projects)", *username, userID, len(owned))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Watcher exiting")
}

func printBucket(store *client.Store, b client.Bucket) {
	rows := store.BucketRows(b)
	fmt.Printf("--- %s (%d rows) %s\n", b, len(rows), time.Now().Format(time.TimeOnly))
	for _, doc := range rows {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, doc[k]))
		}
		fmt.Println("  " + strings.Join(parts, " "))
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(method, url, token string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, env.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func login(server, username, password string) (string, uint, error) {
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	err := call(http.MethodPost, server+"/api/auth/login", "",
		map[string]string{"username": username, "password": password}, &data)
	if err != nil {
		return "", 0, err
	}
	return data.Token, data.User.ID, nil
}

func ownedProjects(server, token string) ([]uint, error) {
	var data struct {
		Created []struct {
			ID uint `json:"id"`
		} `json:"created"`
	}
	if err := call(http.MethodGet, server+"/api/users/projects", token, nil, &data); err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(data.Created))
	for _, p := range data.Created {
		ids = append(ids, p.ID)
	}
	return ids, nil
}
