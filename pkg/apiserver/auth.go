package apiserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// authService issues and verifies bearer tokens for the debug surface.
// Grounded on the teacher's pkg/auth/jwt.go JWTService, trimmed from a
// full RBAC claim set down to a single "operator" role the debug routes
// need.
type authService struct {
	secret []byte
	expiry time.Duration
	// passwordHash is the bcrypt hash of the single operator credential.
	// The caller must set it via SetOperatorPassword before serving
	// requests; until then checkPassword rejects every login attempt.
	passwordHash []byte
}

func newAuthService(secret string, expiry time.Duration) *authService {
	if expiry == 0 {
		expiry = 24 * time.Hour
	}
	return &authService{secret: []byte(secret), expiry: expiry}
}

// SetOperatorPassword hashes and stores the operator password checked by
// the login route.
func (a *authService) SetOperatorPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.passwordHash = hash
	return nil
}

func (a *authService) checkPassword(password string) bool {
	if len(a.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

type claims struct {
	jwt.RegisteredClaims
}

func (a *authService) issueToken() (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "dualtreequeue",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(a.secret)
}

func (a *authService) parseToken(raw string) error {
	_, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Method)
		}
		return a.secret, nil
	})
	return err
}

func (a *authService) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if err := a.parseToken(strings.TrimPrefix(header, prefix)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
