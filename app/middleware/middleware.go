package appMiddleware

import "github.com/golang-jwt/jwt/v5"

type contextKey string

const SubjectKey contextKey = "subject"
const RoleKey contextKey = "role"

const RoleAdmin = "admin"

// Claims carried by operator tokens for the admin routes.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
