package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/opsguardian/backend/internal/api/dto"
	httptransport "github.com/opsguardian/backend/internal/api/http"
	"github.com/opsguardian/backend/internal/api/http/handlers"
	"github.com/opsguardian/backend/internal/auth"
	"github.com/opsguardian/backend/internal/config"
	"github.com/opsguardian/backend/internal/domain"
	"github.com/opsguardian/backend/internal/observability"
	"github.com/opsguardian/backend/internal/persistence"
	"github.com/opsguardian/backend/internal/service"
)

// memTicketRepository is a map-backed repository for transport tests.
type memTicketRepository struct {
	mu      sync.Mutex
	tickets map[int64]domain.Ticket
	nextID  int64
}

func newMemTicketRepository() *memTicketRepository {
	return &memTicketRepository{tickets: make(map[int64]domain.Ticket)}
}

func (m *memTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ticket.ID = m.nextID
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (m *memTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Ticket
	for id := int64(1); id <= m.nextID; id++ {
		if ticket, ok := m.tickets[id]; ok {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func (m *memTicketRepository) Search(ctx context.Context, term string) ([]domain.Ticket, error) {
	all, _ := m.List(ctx)
	needle := strings.ToLower(term)
	var result []domain.Ticket
	for _, ticket := range all {
		if strings.Contains(strings.ToLower(ticket.Title), needle) ||
			strings.Contains(strings.ToLower(ticket.Description), needle) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func newTestApp(t *testing.T, authCfg config.AuthConfig) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	repo := newMemTicketRepository()
	svc := service.NewTicketService(service.TicketDependencies{TicketRepo: repo})
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", &persistence.Postgres{}, &persistence.Redis{}),
		Tickets:        handlers.NewTicketsHandler(svc),
		Auth:           handlers.NewAuthHandler(tokens, authCfg),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, authCfg),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, payload
}

func createTicket(t *testing.T, app *fiber.App, body string) dto.TicketResponse {
	t.Helper()
	resp, payload := doJSON(t, app, http.MethodPost, "/tickets", body, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.StatusCode, payload)
	}
	var out struct {
		Data dto.TicketResponse `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return out.Data
}

func TestCreateTicket_DiscardsClientIDAndDefaults(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})

	ticket := createTicket(t, app, `{"id":999,"title":"Payment gateway timeout","reporter":"x@y.com"}`)

	if ticket.ID != 1 {
		t.Errorf("client-supplied id must be discarded, got %d", ticket.ID)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("expected OPEN, got %q", ticket.Status)
	}
	if ticket.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
}

func TestGetTicket_NotFound(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})

	resp, payload := doJSON(t, app, http.MethodGet, "/tickets/42", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error.Code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %q", out.Error.Code)
	}
}

func TestSearchTickets_QueryParam(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})
	createTicket(t, app, `{"title":"Database connection failed"}`)
	createTicket(t, app, `{"title":"Login page error"}`)

	resp, payload := doJSON(t, app, http.MethodGet, "/tickets?query=database", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Data []dto.TicketResponse `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Data) != 1 || out.Data[0].Title != "Database connection failed" {
		t.Errorf("expected the database ticket only, got %v", out.Data)
	}

	resp, payload = doJSON(t, app, http.MethodGet, "/tickets", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Data) != 2 {
		t.Errorf("blank query must return all, got %d", len(out.Data))
	}
}

func TestUpdateTicket_PartialOverHTTP(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})
	ticket := createTicket(t, app, `{"title":"Partial","category":"Network"}`)

	resp, payload := doJSON(t, app, http.MethodPut, fmt.Sprintf("/tickets/%d", ticket.ID),
		`{"priority":"P0"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, payload)
	}
	var out struct {
		Data dto.TicketResponse `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.Priority != domain.TicketPriorityP0 {
		t.Errorf("expected P0, got %q", out.Data.Priority)
	}
	if out.Data.Category != domain.TicketCategoryNetwork {
		t.Errorf("category must be unchanged, got %q", out.Data.Category)
	}
	if out.Data.Status != domain.TicketStatusOpen {
		t.Errorf("status must be unchanged, got %q", out.Data.Status)
	}
}

func TestAddSuggestions_AcceptedPayloadShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []string
	}{
		{"bare array", `["s1","s2"]`, []string{"s1", "s2"}},
		{"object with array", `{"suggestions":["s1","s2"]}`, []string{"s1", "s2"}},
		{"object with single string", `{"suggestion":"s1"}`, []string{"s1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, config.AuthConfig{})
			ticket := createTicket(t, app, `{"title":"Shapes"}`)

			resp, payload := doJSON(t, app, http.MethodPost,
				fmt.Sprintf("/tickets/%d/suggestions", ticket.ID), tc.body, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", resp.StatusCode, payload)
			}
			var out struct {
				Status string             `json:"status"`
				Ticket dto.TicketResponse `json:"ticket"`
			}
			if err := json.Unmarshal(payload, &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Status != "ok" {
				t.Errorf("expected status ok, got %q", out.Status)
			}
			if len(out.Ticket.Suggestions) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, out.Ticket.Suggestions)
			}
			if out.Ticket.Status != domain.TicketStatusAssigned {
				t.Errorf("expected ASSIGNED, got %q", out.Ticket.Status)
			}
		})
	}
}

func TestAddSuggestions_RejectsUnusablePayload(t *testing.T) {
	for _, body := range []string{`{"note":"hi"}`, `["", "   "]`, `42`} {
		app := newTestApp(t, config.AuthConfig{})
		ticket := createTicket(t, app, `{"title":"Reject"}`)

		resp, payload := doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/tickets/%d/suggestions", ticket.ID), body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
		var out struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Status != "error" || out.Reason != "no suggestions found in payload" {
			t.Errorf("body %s: unexpected rejection %s", body, payload)
		}
	}
}

func TestAddSuggestions_UnknownTicket(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})

	resp, _ := doJSON(t, app, http.MethodPost, "/tickets/42/suggestions", `["s1"]`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAssignTicket(t *testing.T) {
	app := newTestApp(t, config.AuthConfig{})
	ticket := createTicket(t, app, `{"title":"Assign me"}`)

	resp, payload := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/tickets/%d/assign", ticket.ID), `{"team":"sre"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "assigned" {
		t.Errorf("expected assigned, got %q", out.Status)
	}

	getResp, getPayload := doJSON(t, app, http.MethodGet, fmt.Sprintf("/tickets/%d", ticket.ID), "", nil)
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", getResp.StatusCode)
	}
	var getOut struct {
		Data dto.TicketResponse `json:"data"`
	}
	if err := json.Unmarshal(getPayload, &getOut); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if getOut.Data.Status != domain.TicketStatusAssigned || getOut.Data.AssignedTeam != "sre" {
		t.Errorf("expected ASSIGNED/sre, got %q/%q", getOut.Data.Status, getOut.Data.AssignedTeam)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/tickets/99/assign", `{"team":"sre"}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing ticket: expected 404, got %d", resp.StatusCode)
	}
}

func TestAgentAuth_TokenFlow(t *testing.T) {
	hash, err := auth.HashAgentKey("agent-key", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	authCfg := config.AuthConfig{AgentKeyHash: hash, JWTSecret: "test-secret", AgentTokenTTLMinutes: 5}
	app := newTestApp(t, authCfg)

	// mutation without a token is rejected
	resp, _ := doJSON(t, app, http.MethodPost, "/tickets", `{"title":"no token"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// wrong key is rejected
	resp, _ = doJSON(t, app, http.MethodPost, "/auth/agent/token", `{"key":"wrong"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", resp.StatusCode)
	}

	resp, payload := doJSON(t, app, http.MethodPost, "/auth/agent/token", `{"key":"agent-key"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token exchange: expected 200, got %d: %s", resp.StatusCode, payload)
	}
	var out struct {
		Data dto.AgentTokenResponse `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Data.Token == "" {
		t.Fatal("expected token")
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/tickets", `{"title":"with token"}`,
		map[string]string{"Authorization": "Bearer " + out.Data.Token})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 with token, got %d", resp.StatusCode)
	}

	// reads stay open
	resp, _ = doJSON(t, app, http.MethodGet, "/tickets", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected open read, got %d", resp.StatusCode)
	}
}
