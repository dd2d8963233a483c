package auth

import (
	"context"
	"testing"

	"github.com/confcentral/confcentral/internal/model"
)

func TestAuthContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if AuthFromContext(ctx) != nil || UserIDFromContext(ctx) != "" {
		t.Fatal("empty context should be anonymous")
	}

	caller := &model.AuthContext{UserID: "u1", Email: "u1@example.com"}
	ctx = ContextWithAuth(ctx, caller)
	if AuthFromContext(ctx) != caller {
		t.Error("AuthFromContext should return the stored caller")
	}
	if UserIDFromContext(ctx) != "u1" {
		t.Errorf("UserIDFromContext = %q", UserIDFromContext(ctx))
	}
}
