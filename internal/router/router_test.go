package router_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	catalogmem "pet-adoption-hub/internal/adapters/catalog/memory"
	"pet-adoption-hub/internal/ports/catalog"
	"pet-adoption-hub/internal/router"
)

const questionnaire = `{
  "residence": {"type": "house", "ownership": "own", "has_yard": true},
  "household": {"adults": 2, "children": 0, "all_members_agree": true},
  "experience": {"level": "some"},
  "lifestyle": {"hours_alone_per_day": 3, "activity_level": "moderate"},
  "affordability": {"monthly_budget": 150, "can_cover_vet_costs": true},
  "motivation": "Tenemos patio y tiempo.",
  "agrees_to_terms": true
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		Catalog: catalogmem.NewCatalog(catalog.AdoptablePet{
			PetID: "P1", Name: "Luna", ShelterID: "S1", IsAdoptable: true,
		}),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_AdoptionLifecycle(t *testing.T) {
	ts := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK {
		t.Fatalf("health: got %d", st)
	}

	// 1) A1 postula
	appID := submit(t, ts.URL, "A1", "P1")

	// 2) A2 choca con el lock
	st, body := doReq(t, ts.URL, "POST", "/pets/P1/applications", "A2", submitBody("S1"))
	if st != http.StatusConflict || errorCode(body) != "CONFLICT" {
		t.Fatalf("expected 409 CONFLICT, got %d body=%s", st, string(body))
	}

	if b := button(t, ts.URL, "A2"); b != "applied_by_another" {
		t.Fatalf("A2 button: got %q", b)
	}
	if b := button(t, ts.URL, "A1"); b != "withdraw" {
		t.Fatalf("A1 button: got %q", b)
	}

	// 3) shelter pasa a review: abre chat y meeting
	st, body = doReq(t, ts.URL, "POST", "/applications/"+appID+"/review", "S1", nil)
	if st != http.StatusOK {
		t.Fatalf("review: got %d body=%s", st, string(body))
	}
	var review struct {
		Application struct {
			Status string `json:"status"`
		} `json:"application"`
		Chat *struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"chat"`
	}
	_ = json.Unmarshal(body, &review)
	if review.Application.Status != "review" || review.Chat == nil || review.Chat.Status != "open" {
		t.Fatalf("review: unexpected body=%s", string(body))
	}

	// review no es repetible
	st, _ = doReq(t, ts.URL, "POST", "/applications/"+appID+"/review", "S1", nil)
	if st != http.StatusNotFound {
		t.Fatalf("second review: expected 404, got %d", st)
	}

	// 4) rechazo sin motivo falla; con motivo pasa
	st, _ = doReq(t, ts.URL, "POST", "/applications/"+appID+"/reject", "S1", map[string]any{"reason": "  "})
	if st != http.StatusBadRequest {
		t.Fatalf("reject without reason: expected 400, got %d", st)
	}
	st, body = doReq(t, ts.URL, "POST", "/applications/"+appID+"/reject", "S1", map[string]any{"reason": "not suitable"})
	if st != http.StatusOK {
		t.Fatalf("reject: got %d body=%s", st, string(body))
	}
	if b := button(t, ts.URL, "A1"); b != "rejected" {
		t.Fatalf("A1 button after reject: got %q", b)
	}

	// 5) archivo
	st, body = doReq(t, ts.URL, "POST", "/applications/"+appID+"/archive", "S1", nil)
	if st != http.StatusOK {
		t.Fatalf("archive: got %d body=%s", st, string(body))
	}
	st, _ = doReq(t, ts.URL, "GET", "/applications/"+appID, "A1", nil)
	if st != http.StatusNotFound {
		t.Fatalf("archived application still in working set: %d", st)
	}

	// el chat sigue accesible y tiene el mensaje de sistema
	st, body = doReq(t, ts.URL, "GET", "/applications/"+appID+"/chat/messages", "A1", nil)
	if st != http.StatusOK {
		t.Fatalf("chat messages after archive: got %d body=%s", st, string(body))
	}
	if !strings.Contains(string(body), "archived by the shelter") {
		t.Fatalf("missing archive system message: %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/me/archived-applications", "A1", nil)
	var archived []map[string]any
	_ = json.Unmarshal(body, &archived)
	if st != http.StatusOK || len(archived) != 1 {
		t.Fatalf("archived list: got %d body=%s", st, string(body))
	}

	if b := button(t, ts.URL, "A1"); b != "apply_again" {
		t.Fatalf("A1 button after archive: got %q", b)
	}

	// 6) el lock quedó libre: A2 puede postular
	submit(t, ts.URL, "A2", "P1")

	st, body = doReq(t, ts.URL, "GET", "/me/notifications", "A1", nil)
	var inbox []map[string]any
	_ = json.Unmarshal(body, &inbox)
	if st != http.StatusOK || len(inbox) == 0 {
		t.Fatalf("A1 inbox: got %d body=%s", st, string(body))
	}
}

func TestHTTP_ArchivedApplicationCannotModifyRoom(t *testing.T) {
	ts := newServer(t)

	// X: review, rechazo y archivo
	oldID := submit(t, ts.URL, "A1", "P1")
	for _, step := range []struct {
		path string
		body any
	}{
		{"/applications/" + oldID + "/review", nil},
		{"/applications/" + oldID + "/reject", map[string]any{"reason": "not suitable"}},
		{"/applications/" + oldID + "/archive", nil},
	} {
		st, body := doReq(t, ts.URL, "POST", step.path, "S1", step.body)
		if st != http.StatusOK {
			t.Fatalf("%s: got %d body=%s", step.path, st, string(body))
		}
	}

	// Y: misma terna, la sala pasa a Y
	newID := submit(t, ts.URL, "A1", "P1")
	st, body := doReq(t, ts.URL, "POST", "/applications/"+newID+"/review", "S1", nil)
	if st != http.StatusOK {
		t.Fatalf("review Y: got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "POST", "/applications/"+oldID+"/chat", "S1", nil)
	if st != http.StatusNotFound {
		t.Fatalf("reopen via archived application: expected 404, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "DELETE", "/applications/"+oldID+"/chat", "S1", nil)
	if st != http.StatusNotFound {
		t.Fatalf("close via archived application: expected 404, got %d", st)
	}
	st, _ = doReq(t, ts.URL, "POST", "/applications/"+oldID+"/chat/block", "S1", nil)
	if st != http.StatusNotFound {
		t.Fatalf("block via archived application: expected 404, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/applications/"+newID+"/chat", "A1", nil)
	var status struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &status)
	if st != http.StatusOK || status.Status != "open" {
		t.Fatalf("chat of Y: got %d body=%s", st, string(body))
	}

	// la lectura del historial sigue disponible
	st, body = doReq(t, ts.URL, "GET", "/applications/"+oldID+"/chat/messages", "A1", nil)
	if st != http.StatusOK {
		t.Fatalf("messages via archived application: got %d body=%s", st, string(body))
	}
}

func TestHTTP_CloseRoomWhileInReview(t *testing.T) {
	ts := newServer(t)

	appID := submit(t, ts.URL, "A1", "P1")
	st, body := doReq(t, ts.URL, "POST", "/applications/"+appID+"/review", "S1", nil)
	if st != http.StatusOK {
		t.Fatalf("review: got %d body=%s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "DELETE", "/applications/"+appID+"/chat", "S1", nil)
	if st != http.StatusConflict || errorCode(body) != "APPLICATION_ACTIVE" {
		t.Fatalf("close during review: expected 409 APPLICATION_ACTIVE, got %d body=%s", st, string(body))
	}
}

func TestHTTP_Withdraw(t *testing.T) {
	ts := newServer(t)

	appID := submit(t, ts.URL, "A1", "P1")

	st, _ := doReq(t, ts.URL, "DELETE", "/applications/"+appID, "A2", nil)
	if st != http.StatusNotFound {
		t.Fatalf("withdraw by other user: expected 404, got %d", st)
	}
	st, body := doReq(t, ts.URL, "DELETE", "/applications/"+appID, "A1", nil)
	if st != http.StatusNoContent {
		t.Fatalf("withdraw: got %d body=%s", st, string(body))
	}
	if b := button(t, ts.URL, "A2"); b != "apply" {
		t.Fatalf("button after withdraw: got %q", b)
	}
}

func TestHTTP_RequiresUser(t *testing.T) {
	ts := newServer(t)

	st, _ := doReq(t, ts.URL, "GET", "/me/applications", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", st)
	}

	// la disponibilidad es pública
	if b := button(t, ts.URL, ""); b != "apply" {
		t.Fatalf("anonymous button: got %q", b)
	}

	st, body := doReq(t, ts.URL, "POST", "/pets/P9/applications", "A1", submitBody("S1"))
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("unknown pet: expected 422, got %d body=%s", st, string(body))
	}
}

func TestHTTP_StreamDeliversNotifications(t *testing.T) {
	ts := newServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/me/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Debug-User-ID", "S1")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer res.Body.Close()

	rd := bufio.NewReader(res.Body)
	line, err := rd.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": connected") {
		t.Fatalf("stream handshake: %q err=%v", line, err)
	}

	submit(t, ts.URL, "A1", "P1")

	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("stream read: %v", err)
		}
		if strings.TrimSpace(line) == "event: notification:new" {
			return
		}
	}
}

func submitBody(shelterID string) map[string]any {
	return map[string]any{
		"shelter_id":       shelterID,
		"application_data": json.RawMessage(questionnaire),
	}
}

func submit(t *testing.T, baseURL, userID, petID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/pets/"+petID+"/applications", userID, submitBody("S1"))
	if st != http.StatusCreated {
		t.Fatalf("expected 201 submit, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("submit: missing id body=%s", string(body))
	}
	return resp.ID
}

func button(t *testing.T, baseURL, userID string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/pets/P1/availability", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("availability: got %d body=%s", st, string(body))
	}
	var resp struct {
		Button string `json:"button"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.Button
}

func errorCode(body []byte) string {
	var resp struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.Code
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
