// Package testutil provides mocks and fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/formfill/internal/providers/identity"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// MockIdentity is a mock token validator.
type MockIdentity struct {
	mock.Mock
}

// User mocks the User method.
func (m *MockIdentity) User(ctx context.Context, jwt string) (*identity.User, error) {
	args := m.Called(ctx, jwt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

// MockKeyStore is a mock key store.
type MockKeyStore struct {
	mock.Mock
}

// APIKey mocks the APIKey method.
func (m *MockKeyStore) APIKey(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

// MockCompleter is a mock completion vendor.
type MockCompleter struct {
	mock.Mock
}

// Complete mocks the Complete method.
func (m *MockCompleter) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	args := m.Called(ctx, apiKey, prompt)
	return args.String(0), args.Error(1)
}

// NewMockIdentity accepts the token "valid-jwt" for user-1 and rejects
// everything else.
func NewMockIdentity(t *testing.T) *MockIdentity {
	t.Helper()
	m := new(MockIdentity)
	m.On("User", mock.Anything, "valid-jwt").
		Return(&identity.User{ID: "user-1", Email: "ada@example.com"}, nil).
		Maybe()
	m.On("User", mock.Anything, mock.Anything).
		Return(nil, identity.ErrInvalidToken).
		Maybe()
	return m
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}

// BioContext is the field context of an unlabelled, empty bio textarea.
func BioContext() *types.FieldContext {
	return &types.FieldContext{
		FieldID:         Ptr("bio"),
		Placeholder:     Ptr("Write a bio"),
		FieldType:       types.FieldTypeTextarea,
		SourceElementID: "bio",
	}
}
