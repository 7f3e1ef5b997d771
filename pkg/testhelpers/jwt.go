// Package testhelpers provides utilities for testing ekaya-canvas components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates an unsigned (alg: none) token for use when JWKS
// verification is disabled. Empty name or email claims are omitted.
func GenerateTestJWT(sub, name, email string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]string{"sub": sub}
	if name != "" {
		claims["name"] = name
	}
	if email != "" {
		claims["email"] = email
	}
	payload, _ := json.Marshal(claims)

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, name, email string) string {
	return "Bearer " + GenerateTestJWT(sub, name, email)
}
