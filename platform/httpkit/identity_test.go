package httpkit

import (
	"net/http/httptest"
	"testing"

	"chantier_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newAuthedContext(t *testing.T, userID uuid.UUID, roles []string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/v1/prospects", nil)
	c.Set(ContextUserIDKey, userID)
	if roles != nil {
		c.Set(ContextRolesKey, roles)
	}
	return c
}

func TestGetIdentityReadsAuthClaims(t *testing.T) {
	userID := uuid.New()
	c := newAuthedContext(t, userID, []string{"admin"})

	id, ok := GetIdentity(c)
	if !ok {
		t.Fatal("expected an authenticated identity")
	}
	if id.UserID != userID {
		t.Errorf("user id = %s, want %s", id.UserID, userID)
	}
	if !id.HasRole("admin") {
		t.Error("expected admin role")
	}
	if id.HasRole("comptable") {
		t.Error("unexpected role reported")
	}
}

func TestGetIdentityWithoutAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/health", nil)

	if _, ok := GetIdentity(c); ok {
		t.Error("expected no identity on an unauthenticated request")
	}
}

func TestActorContextAnnotatesUserID(t *testing.T) {
	userID := uuid.New()
	c := newAuthedContext(t, userID, nil)

	ctx := ActorContext(c)
	got, ok := ctx.Value(logger.UserIDKey).(string)
	if !ok || got != userID.String() {
		t.Errorf("context user id = %q, want %q", got, userID)
	}
}

func TestActorContextUnauthenticatedLeavesContextBare(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/health", nil)

	ctx := ActorContext(c)
	if ctx.Value(logger.UserIDKey) != nil {
		t.Error("expected no user id on an unauthenticated context")
	}
}
