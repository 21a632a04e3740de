package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ParseToken extracts the caller's identity from a signed token. Identity is
// issued by the surrounding console; this subsystem only trusts the claims.
func ParseToken(jwtSecret, tokenString string) (userID, name, role string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", "", fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", fmt.Errorf("invalid token claims")
	}

	userID, _ = claims["sub"].(string)
	name, _ = claims["name"].(string)
	role, _ = claims["role"].(string)
	if userID == "" {
		return "", "", "", fmt.Errorf("invalid token: missing subject")
	}
	if role == "" {
		role = "user"
	}
	return userID, name, role, nil
}

func Auth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(401).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		userID, name, role, err := ParseToken(jwtSecret, tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals("user_id", userID)
		c.Locals("user_name", name)
		c.Locals("user_role", role)
		return c.Next()
	}
}
