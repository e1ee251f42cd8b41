package auth

import (
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(&Config{
		JWTSecret:      "test-secret",
		TokenExpiry:    time.Hour,
		AllowLocalAuth: true,
	})
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	s := newTestService()
	if _, err := s.Authenticate("nobody", "whatever", "127.0.0.1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRejectsDisabledUser(t *testing.T) {
	s := newTestService()
	hash, _ := HashPassword("secret")
	s.users["operator"] = &User{Username: "operator", PasswordHash: hash, Role: RoleNOCViewer, Enabled: false}

	if _, err := s.Authenticate("operator", "secret", "127.0.0.1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for disabled user via the public surface, got %v", err)
	}
}

func TestAuthenticateSucceedsAndValidatesToken(t *testing.T) {
	s := newTestService()
	hash, _ := HashPassword("secret")
	s.users["operator"] = &User{Username: "operator", PasswordHash: hash, Role: RoleOnCallEngineer, Enabled: true}

	session, err := s.Authenticate("operator", "secret", "127.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.ValidateToken(session.Token)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if got.Username != "operator" || got.Role != RoleOnCallEngineer {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestCheckPermissionRoleBased(t *testing.T) {
	s := newTestService()
	hash, _ := HashPassword("secret")
	s.users["operator"] = &User{Username: "operator", PasswordHash: hash, Role: RoleOnCallEngineer, Enabled: true}
	session, _ := s.Authenticate("operator", "secret", "127.0.0.1")

	if err := s.CheckPermission(session, "page_ue"); err != nil {
		t.Fatalf("expected oncall engineer to have page_ue, got %v", err)
	}
	if err := s.CheckPermission(session, "view_audit_log"); err != ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied for a security-auditor-only permission, got %v", err)
	}
}

func TestCheckPermissionAdminBypassesRoleTable(t *testing.T) {
	s := newTestService()
	hash, _ := HashPassword("secret")
	s.users["root"] = &User{Username: "root", PasswordHash: hash, Role: RoleAdmin, Enabled: true}
	session, _ := s.Authenticate("root", "secret", "127.0.0.1")

	if err := s.CheckPermission(session, "anything_at_all"); err != nil {
		t.Fatalf("expected admin to bypass the role table, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := newTestService()
	hash, _ := HashPassword("secret")
	s.users["operator"] = &User{Username: "operator", PasswordHash: hash, Role: RoleNOCViewer, Enabled: true}
	session, _ := s.Authenticate("operator", "secret", "127.0.0.1")

	s.Logout(session.Token)

	if _, ok := s.sessions[session.Token]; ok {
		t.Fatal("expected session to be removed from the cache after logout")
	}
}
