package model

import "testing"

func TestAuthContext_HasScope(t *testing.T) {
	testCases := []struct {
		name     string
		scopes   []string
		checkFor string
		want     bool
	}{
		{name: "has exact scope", scopes: []string{ScopeRead, ScopeWrite}, checkFor: ScopeRead, want: true},
		{name: "does not have scope", scopes: []string{ScopeRead}, checkFor: ScopeWrite, want: false},
		{name: "admin implies read", scopes: []string{ScopeAdmin}, checkFor: ScopeRead, want: true},
		{name: "write implies read", scopes: []string{ScopeWrite}, checkFor: ScopeRead, want: true},
		{name: "read does not imply admin", scopes: []string{ScopeRead, ScopeWrite}, checkFor: ScopeAdmin, want: false},
		{name: "admin implies write", scopes: []string{ScopeAdmin}, checkFor: ScopeWrite, want: true},
		{name: "empty scopes", scopes: []string{}, checkFor: ScopeRead, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			authCtx := &AuthContext{Scopes: tc.scopes}
			if got := authCtx.HasScope(tc.checkFor); got != tc.want {
				t.Errorf("HasScope(%s) = %v, want %v", tc.checkFor, got, tc.want)
			}
		})
	}
}

func TestAuthContext_HasScopeNil(t *testing.T) {
	var authCtx *AuthContext
	if authCtx.HasScope(ScopeRead) {
		t.Error("nil auth context must not have any scope")
	}
}
