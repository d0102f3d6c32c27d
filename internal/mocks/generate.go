// Package mocks provides mock implementations for testing the directory services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	dir := mocks.NewMockDirectory(ctrl)
//	conn := mocks.NewMockBoundConn(ctrl)
//	dir.EXPECT().BindAdmin(gomock.Any()).Return(conn, nil)
//	conn.EXPECT().Unbind()
//
// Hand-written doubles live in the auth (SSO provider, session store) and dirfake
// (in-memory directory with real filter evaluation) subpackages.
package mocks

// Generate mocks for the Directory and BoundConn interfaces from internal/ports.
// MockDirectory: Name, BaseDN, Bind, BindAdmin, Close
// MockBoundConn: Search, Add, Modify, Delete, Rebind, Unbind
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=directory_mock.go github.com/target/dirkeeper/internal/ports Directory,BoundConn
