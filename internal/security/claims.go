package security

import "time"

type TokenClaims struct {
	Email   string
	Name    string
	Exp     time.Time
	Issuer  string
	Subject string
}
