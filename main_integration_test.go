package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plantfinder/api/internal/models"
)

const (
	testAppBinary  = "./plantfinder_test_app"
	testAppPort    = "8089"
	testAppURL     = "http://localhost:" + testAppPort
	testDbName     = "plantfinder_integration_test"
	startupTimeout = 15 * time.Second
	pingEndpoint   = testAppURL + "/v1/ping"
)

var apiCmd *exec.Cmd

// TestMain builds the binary, starts the API process and tears it down.
func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set; skipping integration tests.")
		return
	}

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}

	if err := dropTestDatabase(); err != nil {
		log.Printf("Failed to reset test database: %v", err)
		os.Exit(1)
	}

	apiCmd = exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(os.Environ(),
		"API_PORT="+testAppPort,
		"MONGO_DB_NAME="+testDbName,
		"GIN_MODE=release",
		"RATE_LIMIT_BUCKET_SIZE=100",
		"RATE_LIMIT_REFILL_RATE=100",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting API process...")
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}

	if err := waitForPing(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("API process did not become ready: %v", err)
		os.Exit(1)
	}

	code := m.Run()

	log.Println("Integration Test Teardown: Stopping API process...")
	_ = apiCmd.Process.Signal(syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- apiCmd.Wait() }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Println("API process did not stop in time, killing.")
		_ = apiCmd.Process.Kill()
	}

	os.Exit(code)
}

func dropTestDatabase() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return client.Database(testDbName).Drop(ctx)
}

func waitForPing() error {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("ping endpoint not reachable within %s", startupTimeout)
}

func postJSON(t *testing.T, path string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(testAppURL+path, "application/json", bytes.NewBuffer(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func TestIntegration_ExchangeFlow(t *testing.T) {
	// Alice offers two packets of tomato seeds
	resp, offerBody := postJSON(t, "/v1/exchange/offer", map[string]interface{}{
		"user_id":  "alice",
		"plant_id": "tomato",
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var offerID string
	require.NoError(t, json.Unmarshal(offerBody["id"], &offerID))

	// A duplicate offer is rejected
	resp, _ = postJSON(t, "/v1/exchange/offer", map[string]interface{}{
		"user_id":  "alice",
		"plant_id": "tomato",
		"quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Bob requests a packet and is matched immediately
	resp, requestBody := postJSON(t, "/v1/exchange/request", map[string]interface{}{
		"user_id":  "bob",
		"plant_id": "tomato",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var requestStatus models.SeedShareStatus
	require.NoError(t, json.Unmarshal(requestBody["status"], &requestStatus))
	assert.Equal(t, models.StatusMatched, requestStatus)

	// The matched offer can no longer be cancelled once exhausted, but this
	// one still has a packet left, so cancelling is allowed
	resp, _ = postJSON(t, "/v1/exchange/offer/"+offerID+"/cancel", map[string]interface{}{
		"user_id": "alice",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Bob's match shows up in his match list
	httpResp, err := http.Get(testAppURL + "/v1/user/bob/match")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var listBody struct {
		Data []models.MatchDetails `json:"data"`
	}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&listBody))
	require.Len(t, listBody.Data, 1)
	match := listBody.Data[0]
	assert.Equal(t, "alice", match.SenderID)
	assert.Equal(t, "bob", match.ReceiverID)

	// Walk the lifecycle: confirm, send, receive
	resp, _ = postJSON(t, "/v1/match/"+match.ID+"/confirm", map[string]interface{}{"user_id": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postJSON(t, "/v1/match/"+match.ID+"/sent", map[string]interface{}{"user_id": "alice"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postJSON(t, "/v1/match/"+match.ID+"/received", map[string]interface{}{"user_id": "bob"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Planting progress, ending with an established plant
	resp, _ = postJSON(t, "/v1/match/"+match.ID+"/planting", map[string]interface{}{
		"user_id": "bob", "status": "planted",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, matchBody := postJSON(t, "/v1/match/"+match.ID+"/planting", map[string]interface{}{
		"user_id": "bob", "status": "established",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var finalStatus models.MatchStatus
	require.NoError(t, json.Unmarshal(matchBody["status"], &finalStatus))
	assert.Equal(t, models.MatchComplete, finalStatus)
}

func TestIntegration_PlantCatalog(t *testing.T) {
	data, err := json.Marshal(map[string]string{
		"common_name":     "Common Milkweed",
		"scientific_name": "Asclepias syriaca",
	})
	require.NoError(t, err)
	req, err := http.NewRequest("PUT", testAppURL+"/v1/plant/milkweed", bytes.NewBuffer(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(testAppURL + "/v1/plant/milkweed")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var plant models.Plant
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&plant))
	assert.Equal(t, "Common Milkweed", plant.CommonName)
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
