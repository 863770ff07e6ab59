package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-erp/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	secret := []byte("test-secret")
	exp := time.Now().Add(time.Hour).Unix()

	router := gin.New()
	router.GET("/any", RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	router.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		if !IsAdmin(c) {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	staff := signed(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u-1", "role": model.RoleStoreHandler, "exp": exp})
	admin := signed(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u-2", "role": model.RoleAdmin, "exp": exp})
	expired := signed(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u-1", "role": model.RoleAdmin, "exp": time.Now().Add(-time.Hour).Unix()})
	foreign := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "u-1", "role": model.RoleAdmin, "exp": exp})
	noRole := signed(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u-1", "exp": exp})

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"missing", "/any", "", "", http.StatusUnauthorized},
		{"not bearer", "/any", "Token " + staff, "", http.StatusUnauthorized},
		{"any role", "/any", "Bearer " + staff, "", http.StatusOK},
		{"cookie", "/any", "", staff, http.StatusOK},
		{"expired", "/any", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong key", "/any", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"no role claim", "/any", "Bearer " + noRole, "", http.StatusForbidden},
		{"staff on admin route", "/admin", "Bearer " + staff, "", http.StatusForbidden},
		{"admin", "/admin", "Bearer " + admin, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.name == "any role" && w.Body.String() != "u-1" {
				t.Errorf("user id = %q", w.Body.String())
			}
		})
	}
}

func TestTokenCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("GIN_MODE", "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/login", nil)
	SetTokenCookie(c, "abc", 60)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != accessTokenCookie || cookies[0].Value != "abc" || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	if cookies[0].Secure {
		t.Error("development cookie marked secure")
	}
}
