package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set PAYMGR_DB_TEST=1 and PAYMGR_DATABASE_DSN to run them.
	if os.Getenv("PAYMGR_DB_TEST") != "1" {
		t.Skip("integration tests are disabled; set PAYMGR_DB_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	jwtSecret = []byte(cfg.JWT.Secret)
	initDB(cfg)
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestPaymentFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user (409 is fine on reruns against the same database)
	regBody, _ := json.Marshal(map[string]string{"username": "flowuser", "password": "flowpass"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(regBody), "")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil || loginResp.Token == "" {
		t.Fatalf("no token in login response: %v", err)
	}
	token := loginResp.Token

	// 3. Create a payment
	ref := fmt.Sprintf("IT-%d", time.Now().UnixNano())
	payBody, _ := json.Marshal(map[string]interface{}{
		"description":  "integration test payment",
		"amount":       "150.25",
		"payment_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"category":     "testing",
		"reference":    ref,
	})
	resp = performRequest(r, http.MethodPost, "/payments", bytes.NewBuffer(payBody), token)
	if resp.Code != 200 {
		t.Fatalf("create payment failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID      uint  `json:"id"`
		Version int64 `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == 0 {
		t.Fatalf("no id in create response: %v", err)
	}

	// 4. The same reference/category/amount must be rejected as a duplicate
	resp = performRequest(r, http.MethodPost, "/payments", bytes.NewBuffer(payBody), token)
	if resp.Code != 409 {
		t.Fatalf("expected 409 for duplicate, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 5. Edit with the read version succeeds
	editBody, _ := json.Marshal(map[string]interface{}{
		"description":  "integration test payment (edited)",
		"amount":       "150.25",
		"payment_date": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"category":     "testing",
		"reference":    ref,
		"version":      created.Version,
	})
	resp = performRequest(r, http.MethodPut, fmt.Sprintf("/payments/%d", created.ID), bytes.NewBuffer(editBody), token)
	if resp.Code != 200 {
		t.Fatalf("edit failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. A second edit with the stale version must conflict
	resp = performRequest(r, http.MethodPut, fmt.Sprintf("/payments/%d", created.ID), bytes.NewBuffer(editBody), token)
	if resp.Code != 409 {
		t.Fatalf("expected 409 for stale edit, got %d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Bulk delete removes the record and ignores unknown ids
	delBody, _ := json.Marshal(map[string]interface{}{"ids": []uint{created.ID, 99999999}})
	resp = performRequest(r, http.MethodPost, "/payments/delete", bytes.NewBuffer(delBody), token)
	if resp.Code != 200 {
		t.Fatalf("bulk delete failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var delResp struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&delResp); err != nil || delResp.Deleted != 1 {
		t.Fatalf("expected deleted=1, got %+v err=%v", delResp, err)
	}

	// 8. Deleting again is a no-op, not an error
	resp = performRequest(r, http.MethodDelete, fmt.Sprintf("/payments/%d", created.ID), nil, token)
	if resp.Code != 200 {
		t.Fatalf("idempotent delete failed status=%d body=%s", resp.Code, resp.Body.String())
	}
}
