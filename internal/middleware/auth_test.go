package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restobook/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	// Arrange
	secret := "test-secret-123"
	jwtService := jwt.New(secret, 1*time.Hour)
	validToken, _ := jwtService.GenerateToken("user-42", "customer")

	router := gin.New()
	router.Use(JWTAuth(jwtService))

	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(ContextUserID),
			"role":    c.GetString(ContextRole),
		})
	})

	// Act
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
	assert.Contains(t, w.Body.String(), "customer")
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	issuer := jwt.New("issuer-secret", time.Hour)
	foreign, _ := issuer.GenerateToken("user-1", "admin")

	router := gin.New()
	router.Use(JWTAuth(jwt.New("wrong-secret", 1*time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("This handler should not be reached")
	})

	for _, token := range []string{"invalid-jwt-here", foreign} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	stale, err := jwt.New("secret", -time.Hour).GenerateToken("user-1", "customer")
	require.NoError(t, err)

	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", time.Hour)))
	router.GET("/protected", func(c *gin.Context) { t.Fatal("should not reach here") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestJWTAuth_NoToken(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", 1*time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_HEADER_MISSING")
}

func TestJWTAuth_WrongFormat(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", 1*time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic dGVzdA==")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestRequireRole(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	router := gin.New()
	router.GET("/staff", JWTAuth(jwtService), StaffOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := map[string]int{
		"customer": http.StatusForbidden,
		"staff":    http.StatusOK,
		"admin":    http.StatusOK,
	}
	for role, want := range cases {
		token, _ := jwtService.GenerateToken("u1", role)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/staff", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestSelfOrRole(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	router := gin.New()
	router.GET("/users/:userId", JWTAuth(jwtService), SelfOrRole("userId", RoleStaff), func(c *gin.Context) { c.Status(http.StatusOK) })

	own, _ := jwtService.GenerateToken("u1", RoleCustomer)
	staff, _ := jwtService.GenerateToken("s1", RoleStaff)

	do := func(path, token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, do("/users/u1", own))
	assert.Equal(t, http.StatusForbidden, do("/users/u2", own))
	assert.Equal(t, http.StatusOK, do("/users/u2", staff))
}

func TestInternalTokenAuth(t *testing.T) {
	router := gin.New()
	router.POST("/internal", InternalTokenAuth("svc-token"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(header string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/internal", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("svc-token"))
	assert.Equal(t, http.StatusForbidden, do("Bearer nope"))
	assert.Equal(t, http.StatusNoContent, do("Bearer svc-token"))
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorLogger_RecoversPanic(t *testing.T) {
	router := gin.New()
	router.Use(ErrorLogger())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "server error")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/id", nil))
	minted := w.Header().Get(HeaderRequestID)
	assert.Len(t, minted, 36)
	assert.Equal(t, minted, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/id", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestJWTOrInternal(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	router := gin.New()
	router.GET("/b", JWTOrInternal(jwtService, "svc-token"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRole))
	})

	do := func(path, header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		return w
	}

	w := do("/b", "Bearer svc-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleService, w.Body.String())

	token, _ := jwtService.GenerateToken("u1", RoleCustomer)
	w = do("/b?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RoleCustomer, w.Body.String())

	w = do("/b", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
