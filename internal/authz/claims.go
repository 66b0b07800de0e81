package authz

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of an access token.
type Claims struct {
	UserID    int64 `json:"user_id"`
	RoleID    int   `json:"role_id"`
	CompanyID int64 `json:"company_id"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() Actor {
	return Actor{UserID: c.UserID, RoleID: c.RoleID, CompanyID: c.CompanyID}
}
