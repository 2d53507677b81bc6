package middleware

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "callerAddress"

var (
	jwtSecretMu  sync.RWMutex
	jwtSecretVal []byte
)

// InitJWTSecret sets the HMAC key used to sign and verify bearer tokens.
func InitJWTSecret(secret string) error {
	if secret == "" {
		return errors.New("JWT secret must not be empty")
	}
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecretVal = []byte(secret)
	return nil
}

func MustInitJWTSecret(secret string) {
	if err := InitJWTSecret(secret); err != nil {
		panic(err)
	}
}

func JWTSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	if len(jwtSecretVal) == 0 {
		panic("JWT secret is not initialised")
	}
	return jwtSecretVal
}

// Claims is the bearer token payload. Address is the caller's account in
// checksum form.
type Claims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return JWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Address == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(callerKey, claims.Address)
		c.Next()
	}
}

// SetCaller stores the authenticated caller address on the request context.
func SetCaller(c *gin.Context, address string) {
	c.Set(callerKey, address)
}

func GetCaller(c *gin.Context) (string, bool) {
	caller, exists := c.Get(callerKey)
	if !exists {
		return "", false
	}
	s, ok := caller.(string)
	return s, ok
}
