package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"evade.gg/keyserver/handlers"
	"evade.gg/keyserver/internal/testutil"
	"evade.gg/keyserver/models"
)

func TestCreateKey_Defaults(t *testing.T) {
	server, _ := testutil.NewTestServer()

	w := testutil.MakeAdminRequest(t, server, http.MethodPost, "/api/admin/keys", handlers.CreateKeyRequest{})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Key
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode created key: %v", err)
	}

	if created.Key == "" {
		t.Error("Expected a generated key code")
	}
	if created.Key != strings.ToUpper(created.Key) {
		t.Errorf("Expected uppercase generated code, got %s", created.Key)
	}
	if len(created.Key) != 8 {
		t.Errorf("Expected 8-character generated code, got %q", created.Key)
	}
	if created.MaxUses != 1 {
		t.Errorf("Expected default maxUses=1, got %d", created.MaxUses)
	}
	if created.Uses != 0 {
		t.Errorf("Expected uses=0, got %d", created.Uses)
	}
	if created.ExpiresAt != nil {
		t.Errorf("Expected no expiration, got %v", created.ExpiresAt)
	}
	if created.IsRevoked {
		t.Error("Expected new key not revoked")
	}
}

func TestCreateKey_ExplicitZeroMaxUses(t *testing.T) {
	server, _ := testutil.NewTestServer()

	zero := 0
	w := testutil.MakeAdminRequest(t, server, http.MethodPost, "/api/admin/keys", handlers.CreateKeyRequest{
		Key:     "UNLIMITED-KEY",
		MaxUses: &zero,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	var created models.Key
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode created key: %v", err)
	}

	// explicit 0 means unlimited and must not collapse to the default of 1
	if created.MaxUses != 0 {
		t.Errorf("Expected maxUses=0, got %d", created.MaxUses)
	}
}

func TestCreateKey_DurationDays(t *testing.T) {
	server, _ := testutil.NewTestServer()

	w := testutil.MakeAdminRequest(t, server, http.MethodPost, "/api/admin/keys", handlers.CreateKeyRequest{
		Key:          "WEEK-KEY",
		DurationDays: 7,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	var created models.Key
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode created key: %v", err)
	}

	if created.ExpiresAt == nil {
		t.Fatal("Expected expiresAt to be set")
	}

	expected := time.Now().UTC().AddDate(0, 0, 7)
	diff := created.ExpiresAt.Sub(expected)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("Expected expiresAt within a minute of now+7d, got %v (diff %v)", created.ExpiresAt, diff)
	}
}

func TestCreateKey_Duplicate(t *testing.T) {
	server, db := testutil.NewTestServer()
	testutil.CreateTestKey(t, db, "TAKEN-KEY", 1)

	w := testutil.MakeAdminRequest(t, server, http.MethodPost, "/api/admin/keys", handlers.CreateKeyRequest{
		Key: "TAKEN-KEY",
	})
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "Failed to create key. Key might already exist.")
}

func TestListKeys_OrderedNewestFirst(t *testing.T) {
	server, db := testutil.NewTestServer()

	for i := 0; i < 3; i++ {
		testutil.CreateTestKey(t, db, fmt.Sprintf("KEY-%d", i), 1)
	}

	w := testutil.MakeAdminRequest(t, server, http.MethodGet, "/api/admin/keys", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var keys []models.Key
	if err := json.NewDecoder(w.Body).Decode(&keys); err != nil {
		t.Fatalf("Failed to decode keys: %v", err)
	}

	if len(keys) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].CreatedAt.After(keys[i-1].CreatedAt) {
			t.Errorf("Expected newest-first ordering, %v after %v", keys[i-1].CreatedAt, keys[i].CreatedAt)
		}
	}
}

func TestDeleteKey(t *testing.T) {
	server, db := testutil.NewTestServer()
	created := testutil.CreateTestKey(t, db, "DOOMED-KEY", 1)

	w := testutil.MakeAdminRequest(t, server, http.MethodDelete, fmt.Sprintf("/api/admin/keys/%d", created.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}

	// the deleted key's code no longer validates
	vw := testutil.MakeValidateRequest(t, server, "DOOMED-KEY", "")
	testutil.AssertValidateResponse(t, vw, http.StatusOK, false, "Invalid key")
}

func TestDeleteKey_NonexistentIsSilent(t *testing.T) {
	server, _ := testutil.NewTestServer()

	w := testutil.MakeAdminRequest(t, server, http.MethodDelete, "/api/admin/keys/99999", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for unknown id, got %d", w.Code)
	}
}

func TestDeleteKey_InvalidID(t *testing.T) {
	server, _ := testutil.NewTestServer()

	w := testutil.MakeAdminRequest(t, server, http.MethodDelete, "/api/admin/keys/not-a-number", nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "Invalid id")
}

func TestDeleteKey_KeepsValidationHistory(t *testing.T) {
	server, db := testutil.NewTestServer()
	created := testutil.CreateTestKey(t, db, "HISTORIC-KEY", 5)

	w := testutil.MakeValidateRequest(t, server, "HISTORIC-KEY", "H1")
	testutil.AssertValidateResponse(t, w, http.StatusOK, true, "Key validated successfully")

	dw := testutil.MakeAdminRequest(t, server, http.MethodDelete, fmt.Sprintf("/api/admin/keys/%d", created.ID), nil)
	if dw.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", dw.Code)
	}

	count, err := db.CountValidations(context.Background())
	if err != nil {
		t.Fatalf("Failed to count validations: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected validation history to survive key deletion, got %d records", count)
	}
}
