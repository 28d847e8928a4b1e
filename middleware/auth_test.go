package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"instrument-rental-backend/middleware"
	"instrument-rental-backend/services"
)

const testSecret = "test-secret"

func protectedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{middleware.RequireAuth(testSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		v, _ := c.Get("identity")
		id := v.(services.Identity)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role})
	})
	r.GET("/protected", chain...)
	return r
}

func TestRequireAuth_ValidToken(t *testing.T) {
	token, err := middleware.CreateAccessToken(testSecret, 42, "owner", time.Hour)
	assert.Nil(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":42`)
	assert.Contains(t, w.Body.String(), `"role":"owner"`)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	token, err := middleware.CreateAccessToken(testSecret, 42, "renter", -time.Minute)
	assert.Nil(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	token, err := middleware.CreateAccessToken("other-secret", 42, "renter", time.Hour)
	assert.Nil(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	renterToken, _ := middleware.CreateAccessToken(testSecret, 1, "renter", time.Hour)
	ownerToken, _ := middleware.CreateAccessToken(testSecret, 2, "owner", time.Hour)
	adminToken, _ := middleware.CreateAccessToken(testSecret, 3, "admin", time.Hour)

	r := protectedRouter(middleware.RequireRole("owner"))

	cases := []struct {
		token string
		want  int
	}{
		{renterToken, http.StatusForbidden},
		{ownerToken, http.StatusOK},
		{adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code)
	}
}
