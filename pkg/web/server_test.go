package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeAuth struct{}

func (fakeAuth) ValidateToken(token string) (string, string, error) {
	if token != "good" {
		return "", "", http.ErrNoCookie
	}
	return "operator", "noc_viewer", nil
}
func (fakeAuth) Login(username, password string) (string, error) { return "good", nil }
func (fakeAuth) Logout(token string) error                        { return nil }

type fakeData struct{}

func (fakeData) GetKPIs() (map[string]interface{}, error) {
	return map[string]interface{}{"attach_success_rate": 99.5}, nil
}
func (fakeData) GetUEs(limit, offset int) ([]map[string]interface{}, error) {
	return []map[string]interface{}{{"imsi": "001010000000001"}}, nil
}
func (fakeData) GetUE(imsi string) (map[string]interface{}, error) {
	if imsi != "001010000000001" {
		return nil, http.ErrNoLocation
	}
	return map[string]interface{}{"imsi": imsi}, nil
}
func (fakeData) GetProcedureLog(limit int) ([]map[string]interface{}, error) { return nil, nil }
func (fakeData) GetUsers() ([]map[string]interface{}, error)                 { return nil, nil }
func (fakeData) CreateUser(user map[string]interface{}) error                { return nil }
func (fakeData) UpdateUser(username string, updates map[string]interface{}) error { return nil }
func (fakeData) DeleteUser(username string) error                            { return nil }

func newTestServer() *Server {
	return New(Config{AuthService: fakeAuth{}, DataProvider: fakeData{}})
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	s := newTestServer()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/kpi", nil)
	s.requireAuth(s.handleKPIs)(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAuthAllowsValidToken(t *testing.T) {
	s := newTestServer()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/kpi", nil)
	req.Header.Set("Authorization", "Bearer good")
	s.requireAuth(s.handleKPIs)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestHandleUEDetailNotFound(t *testing.T) {
	s := newTestServer()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ues/nonexistent", nil)
	s.handleUEDetail(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHandleUEDetailFound(t *testing.T) {
	s := newTestServer()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ues/001010000000001", nil)
	s.handleUEDetail(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
