package devauth

import (
	"context"
	"strings"
	"testing"

	"github.com/target/dirkeeper/internal/ports"
)

func TestProvider_BeginAndComplete(t *testing.T) {
	prov, err := NewProvider(Config{NameID: "dev@example.com", EmployeeID: "E1001", AuthType: "ldap"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	res, err := prov.Begin(context.Background(), ports.BeginInput{RelayState: "/"})
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if !strings.HasPrefix(res.AuthURL, "/auth/callback?") {
		t.Fatalf("unexpected authURL: %s", res.AuthURL)
	}
	if res.State == "" || res.Nonce == "" {
		t.Fatal("state and nonce should be generated")
	}
	prof, err := prov.Complete(context.Background(), ports.CompleteInput{Code: "dev", State: res.State, Nonce: res.Nonce})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if prof.NameID != "dev@example.com" || prof.First("employeeNumber") != "E1001" || prof.First("authType") != "ldap" {
		t.Fatalf("unexpected profile: %+v", prof)
	}
	if prof.NotOnOrAfter.IsZero() {
		t.Fatal("profile should carry an expiry")
	}
}

func TestProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{}); err == nil {
		t.Fatal("expected error for missing NameID")
	}
	prov, err := NewProvider(Config{NameID: "dev@example.com"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	prof, _ := prov.Complete(context.Background(), ports.CompleteInput{})
	if prof.First("employeeNumber") != "" {
		t.Fatal("employee id should be absent when not configured")
	}
	u, _ := prov.LogoutURL(context.Background(), ports.LogoutInput{RelayState: "/login"})
	if u != "/login" {
		t.Fatalf("unexpected logout url %q", u)
	}
}
