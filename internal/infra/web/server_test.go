//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/config"
	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/usecase"
)

type mockCatalog struct {
	products map[string]*model.Product

	createErr error
}

var _ usecase.AdminCatalogUseCase = (*mockCatalog)(nil)

func newMockCatalog(ps ...*model.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[string]*model.Product)}
	for _, p := range ps {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) List(ctx context.Context) ([]*model.Product, error) {
	var out []*model.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockCatalog) Get(ctx context.Context, id string) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	p.ID = "generated-id"
	m.products[p.ID] = p
	return p, nil
}

func (m *mockCatalog) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	if _, ok := m.products[p.ID]; !ok {
		return nil, domain.ErrProductNotFound
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockCatalog) Delete(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func newAdminServer(catalog *mockCatalog, secret string) *Server {
	l := zerolog.Nop()
	cfg := &config.Config{}
	cfg.Admin.JWTSecret = secret
	return NewServer(cfg, catalog, &l)
}

func authed(req *http.Request, s *Server, t *testing.T) *http.Request {
	t.Helper()
	tok, err := s.auth.Mint()
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestAuthManager(t *testing.T) {
	t.Run("mint and parse round trip", func(t *testing.T) {
		a := NewAuthManager("topsecret", time.Minute)
		tok, err := a.Mint()
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		claims, err := a.parse(tok)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if claims.Role != "admin" {
			t.Fatalf("role = %q", claims.Role)
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewAuthManager("other", time.Minute)
		tok, _ := other.Mint()
		a := NewAuthManager("topsecret", time.Minute)
		if _, err := a.parse(tok); err == nil {
			t.Fatal("expected rejection")
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		a := NewAuthManager("topsecret", time.Minute)
		claims := AdminClaims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("topsecret"))
		if _, err := a.parse(tok); err == nil {
			t.Fatal("expected rejection")
		}
	})

	t.Run("unsigned token is rejected", func(t *testing.T) {
		a := NewAuthManager("topsecret", time.Minute)
		claims := AdminClaims{Role: "admin"}
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := a.parse(tok); err == nil {
			t.Fatal("expected rejection")
		}
	})
}

func TestAdminAuthMiddleware(t *testing.T) {
	t.Run("no token is unauthorized", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(), "topsecret")
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("unconfigured secret fails closed", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(), "")
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})
}

func TestAdminCRUD(t *testing.T) {
	existing := &model.Product{ID: "p-1", Slug: "plus_ten_requests", Name: "+10 запросов", Type: model.ProductTypeLadder}

	t.Run("list wraps products in a data envelope", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(existing), "topsecret")
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil), s, t))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			Data []*model.Product `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Data) != 1 || body.Data[0].Slug != "plus_ten_requests" {
			t.Fatalf("data = %+v", body.Data)
		}
	})

	t.Run("create answers 201", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(), "topsecret")
		payload := `{"slug":"daily_requests_reset","name":"Сброс лимита","type":"daily"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(payload)), s, t)
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
	})

	t.Run("create validation failure answers 400", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.createErr = domain.ErrInvalidArgument
		s := newAdminServer(catalog, "topsecret")
		req := authed(httptest.NewRequest(http.MethodPost, "/api/v1/products/", strings.NewReader(`{}`)), s, t)
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("get unknown id answers 404", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(), "topsecret")
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil), s, t))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("delete answers 204", func(t *testing.T) {
		s := newAdminServer(newMockCatalog(existing), "topsecret")
		rec := httptest.NewRecorder()
		s.router().ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/api/v1/products/p-1", nil), s, t))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})
}
