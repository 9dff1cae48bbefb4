package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"celo-nlte/internal/contact"
	"celo-nlte/internal/draft"
	"celo-nlte/internal/engine"
	"celo-nlte/internal/nlp"
	"celo-nlte/internal/schedule"
	"celo-nlte/internal/token"
	"celo-nlte/internal/transfer"
)

const (
	testUser = "wallet:0xaaa"
	testFrom = "0xAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaa1"
	aliceHex = "0x2222222222222222222222222222222222222222"
)

type staticBalances struct{}

func (staticBalances) Balance(context.Context, string, token.Token) (string, error) {
	return "1000", nil
}

type staticFeatures struct{}

func (staticFeatures) StakingSupported() bool              { return true }
func (staticFeatures) SwapSupported(_, _ token.Token) bool { return true }

func newTestServer(t *testing.T) (*Server, *contact.MemoryStore, *transfer.MemoryStore) {
	t.Helper()

	contacts := contact.NewMemoryStore()
	if _, err := contacts.Add(context.Background(), testUser, contact.Contact{Name: "alice", Address: aliceHex}); err != nil {
		t.Fatalf("seed contact: %v", err)
	}

	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	calc := schedule.NewCalculator(schedule.WithClock(func() time.Time { return now }))
	builder := nlp.NewBuilder(contact.NewResolver(contacts), calc)
	validator := draft.NewValidator(staticBalances{}, nil, staticFeatures{})
	eng := engine.New(builder, draft.NewDrafter(validator, nil))

	transfers := transfer.NewMemoryStore()
	svc := transfer.NewService(transfers, transfer.WithServiceClock(func() time.Time { return now }))

	return NewServer(":0", eng, contacts, svc), contacts, transfers
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleParse(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	body := fmt.Sprintf(`{"text":"send 5 cusd to alice","user_key":%q}`, testUser)
	rec := postJSON(t, routes, "/api/v1/parse", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got parseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Intent != nlp.IntentSend {
		t.Fatalf("expected SEND, got %s", got.Intent)
	}
	if got.Parameters.Recipient != aliceHex {
		t.Fatalf("contact must resolve, got %q", got.Parameters.Recipient)
	}
	if got.ConfidencePercent != 85 {
		t.Fatalf("expected 85%% confidence, got %d", got.ConfidencePercent)
	}
}

func TestHandleParseErrors(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	t.Run("invalid method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/parse", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		rec := postJSON(t, routes, "/api/v1/parse", `{"text":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown intent still parses", func(t *testing.T) {
		rec := postJSON(t, routes, "/api/v1/parse", `{"text":"what is the weather"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var got parseResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if got.Intent != nlp.IntentUnknown {
			t.Fatalf("expected UNKNOWN, got %s", got.Intent)
		}
	})
}

func TestHandleDraft(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	body := fmt.Sprintf(`{"text":"send 5 cusd to alice","user_key":%q,"from_address":%q}`, testUser, testFrom)
	rec := postJSON(t, routes, "/api/v1/draft", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var got draftResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Validation.IsValid {
		t.Fatalf("expected valid draft, got %+v", got.Validation)
	}
	if got.To != aliceHex || got.Amount != "5" {
		t.Fatalf("draft fields wrong: %+v", got.Draft)
	}
	if got.Description == "" || got.TotalCost == "" {
		t.Fatalf("summary fields must be present")
	}

	// UNKNOWN text cannot be drafted.
	rec = postJSON(t, routes, "/api/v1/draft", fmt.Sprintf(`{"text":"hello there","from_address":%q}`, testFrom))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleContacts(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	addBody := fmt.Sprintf(`{"user_key":%q,"name":"bob","address":"0x3333333333333333333333333333333333333333"}`, testUser)
	rec := postJSON(t, routes, "/api/v1/contacts", addBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add contact: got %d, body %s", rec.Code, rec.Body.String())
	}
	var added contact.Contact
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// Duplicate addresses conflict.
	rec = postJSON(t, routes, "/api/v1/contacts", addBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate add: expected %d, got %d", http.StatusConflict, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/contacts?user_key="+testUser, nil)
	recList := httptest.NewRecorder()
	routes.ServeHTTP(recList, req)
	var list []contact.Contact
	if err := json.Unmarshal(recList.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(list))
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/contacts/"+added.ID+"?user_key="+testUser, nil)
	recDel := httptest.NewRecorder()
	routes.ServeHTTP(recDel, del)
	if recDel.Code != http.StatusNoContent {
		t.Fatalf("delete contact: expected %d, got %d", http.StatusNoContent, recDel.Code)
	}
}

func TestHandleTransfers(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	scheduled := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC).UnixMilli()
	body := fmt.Sprintf(`{"user_key":%q,"recipient":%q,"amount":"25","token":"cUSD","scheduled_time":%d}`,
		testUser, aliceHex, scheduled)

	rec := postJSON(t, routes, "/api/v1/transfers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule: got %d, body %s", rec.Code, rec.Body.String())
	}
	var created transfer.Transfer
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != transfer.StatusPending || !created.AutoApproved {
		t.Fatalf("unexpected transfer: %+v", created)
	}

	// Past schedules are rejected.
	past := fmt.Sprintf(`{"user_key":%q,"recipient":%q,"amount":"25","token":"cUSD","scheduled_time":1}`, testUser, aliceHex)
	rec = postJSON(t, routes, "/api/v1/transfers", past)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("past schedule: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/"+created.ID+"?user_key="+testUser, nil)
	recGet := httptest.NewRecorder()
	routes.ServeHTTP(recGet, getReq)
	if recGet.Code != http.StatusOK {
		t.Fatalf("get transfer: expected %d, got %d", http.StatusOK, recGet.Code)
	}

	// Foreign users see nothing.
	foreign := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/"+created.ID+"?user_key=wallet:0xbbb", nil)
	recForeign := httptest.NewRecorder()
	routes.ServeHTTP(recForeign, foreign)
	if recForeign.Code != http.StatusNotFound {
		t.Fatalf("foreign get: expected %d, got %d", http.StatusNotFound, recForeign.Code)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/transfers/"+created.ID+"?user_key="+testUser, nil)
	recDel := httptest.NewRecorder()
	routes.ServeHTTP(recDel, del)
	if recDel.Code != http.StatusNoContent {
		t.Fatalf("cancel: expected %d, got %d", http.StatusNoContent, recDel.Code)
	}

	// A cancelled transfer cannot be cancelled again.
	recDel2 := httptest.NewRecorder()
	routes.ServeHTTP(recDel2, httptest.NewRequest(http.MethodDelete, "/api/v1/transfers/"+created.ID+"?user_key="+testUser, nil))
	if recDel2.Code != http.StatusConflict {
		t.Fatalf("double cancel: expected %d, got %d", http.StatusConflict, recDel2.Code)
	}
}

func TestTransferOutcomeCallback(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	scheduled := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC).UnixMilli()
	body := fmt.Sprintf(`{"user_key":%q,"recipient":%q,"amount":"25","token":"cUSD","scheduled_time":%d}`,
		testUser, aliceHex, scheduled)
	rec := postJSON(t, routes, "/api/v1/transfers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("schedule: got %d, body %s", rec.Code, rec.Body.String())
	}
	var created transfer.Transfer
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	rec = postJSON(t, routes, "/api/v1/transfers/"+created.ID, `{"status":"completed","tx_hash":"0xfeed"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("callback: expected %d, got %d, body %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/transfers/"+created.ID+"?user_key="+testUser, nil)
	recGet := httptest.NewRecorder()
	routes.ServeHTTP(recGet, getReq)
	var got transfer.Transfer
	if err := json.Unmarshal(recGet.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if got.Status != transfer.StatusCompleted || got.TxHash != "0xfeed" {
		t.Fatalf("unexpected transfer after callback: %+v", got)
	}

	// The second terminal report conflicts.
	rec = postJSON(t, routes, "/api/v1/transfers/"+created.ID, `{"status":"failed","error":"node down"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second callback: expected %d, got %d", http.StatusConflict, rec.Code)
	}

	// Non-terminal statuses are rejected.
	rec = postJSON(t, routes, "/api/v1/transfers/"+created.ID, `{"status":"pending"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = postJSON(t, routes, "/api/v1/transfers/st_missing", `{"status":"failed","error":"gone"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing transfer: expected %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	server, _, _ := newTestServer(t)
	routes := server.Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nlte_http_requests_total") {
		t.Fatalf("metrics output missing request counter: %s", rec.Body.String())
	}
}
