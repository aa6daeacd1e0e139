package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"evade.gg/keyserver/handlers"
	"evade.gg/keyserver/internal/config"
	"evade.gg/keyserver/models"
	"evade.gg/keyserver/storage"
)

// AdminToken is the shared secret test servers are configured with.
const AdminToken = "test-admin-token"

// TestStorage creates an empty memory storage
func TestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// TestConfig returns a config suitable for handler tests. Rate limiting is
// disabled so loops of requests stay deterministic.
func TestConfig() *config.Config {
	return &config.Config{
		Port:              "8080",
		DatabaseURL:       ":memory:",
		AdminToken:        AdminToken,
		ValidateRateLimit: 0,
	}
}

// NewTestServer wires a server around memory storage
func NewTestServer() (*handlers.Server, *storage.MemoryStorage) {
	db := TestStorage()
	return handlers.NewHttpServer(TestConfig(), db), db
}

// CreateTestKey inserts a key and fails the test on error
func CreateTestKey(t *testing.T, db storage.Storage, code string, maxUses int) *models.Key {
	t.Helper()

	created, err := db.CreateKey(context.Background(), &models.Key{
		Key:     code,
		MaxUses: maxUses,
	})
	if err != nil {
		t.Fatalf("Failed to create test key %s: %v", code, err)
	}
	return created
}

// CreateTestBan inserts a blacklist entry for the given hwid
func CreateTestBan(t *testing.T, db storage.Storage, hwid, reason string) *models.BlacklistEntry {
	t.Helper()

	entry := models.BlacklistEntry{HWID: &hwid}
	if reason != "" {
		entry.Reason = &reason
	}

	created, err := db.AddToBlacklist(context.Background(), &entry)
	if err != nil {
		t.Fatalf("Failed to ban hwid %s: %v", hwid, err)
	}
	return created
}

// MakeValidateRequest sends a validation request through the router
func MakeValidateRequest(t *testing.T, server *handlers.Server, key, hwid string) *httptest.ResponseRecorder {
	t.Helper()

	reqBody := handlers.ValidateRequest{
		Key:  key,
		HWID: hwid,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "198.51.100.7:50000"

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)

	return w
}

// MakeAdminRequest sends an admin request carrying the shared secret header
func MakeAdminRequest(t *testing.T, server *handlers.Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-admin-token", AdminToken)

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)

	return w
}

// AssertValidateResponse checks status, verdict and message of a validation
// response
func AssertValidateResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedValid bool, expectedMessage string) {
	t.Helper()

	if w.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, w.Code)
	}

	var response handlers.ValidateResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response.Valid != expectedValid {
		t.Errorf("Expected valid=%v, got valid=%v", expectedValid, response.Valid)
	}

	if response.Message != expectedMessage {
		t.Errorf("Expected message '%s', got '%s'", expectedMessage, response.Message)
	}
}

// AssertErrorResponse checks status and message of an admin error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	t.Helper()

	if w.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}

	if response["message"] != expectedMessage {
		t.Errorf("Expected message '%s', got '%s'", expectedMessage, response["message"])
	}
}

// ValidationTestCase is one row of a table-driven validation test
type ValidationTestCase struct {
	Name            string
	Key             string
	HWID            string
	ExpectedStatus  int
	ExpectedValid   bool
	ExpectedMessage string
}

// RunValidationTestCases runs a set of validation test cases against the
// same server
func RunValidationTestCases(t *testing.T, server *handlers.Server, testCases []ValidationTestCase) {
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			w := MakeValidateRequest(t, server, tc.Key, tc.HWID)

			status := tc.ExpectedStatus
			if status == 0 {
				status = http.StatusOK
			}
			AssertValidateResponse(t, w, status, tc.ExpectedValid, tc.ExpectedMessage)
		})
	}
}

// ExpiresIn returns a pointer to an instant the given duration from now,
// for building keys with expirations in tests
func ExpiresIn(d time.Duration) *time.Time {
	at := time.Now().Add(d)
	return &at
}

// SeedStatsFixture creates 3 keys (one revoked) and bans one hwid, matching
// the stats the dashboard scenario expects
func SeedStatsFixture(t *testing.T, db storage.Storage) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := db.CreateKey(ctx, &models.Key{Key: fmt.Sprintf("STATS-KEY-%d", i), MaxUses: 1}); err != nil {
			t.Fatalf("Failed to seed key: %v", err)
		}
	}
	if _, err := db.CreateKey(ctx, &models.Key{Key: "STATS-REVOKED", MaxUses: 1, IsRevoked: true}); err != nil {
		t.Fatalf("Failed to seed revoked key: %v", err)
	}

	CreateTestBan(t, db, "STATS-HWID", "abuse")
}
