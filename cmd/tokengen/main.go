package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokengen mints an HS256 token accepted by the verify service, for calling
// the API locally:
//
//	go run ./cmd/tokengen -secret "$JWT_SECRET" -subject "$(uuidgen)"
func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token (JWT_SECRET)")
	subject := flag.String("subject", "", "Owner UUID placed in the sub claim (random when empty)")
	email := flag.String("email", "", "Optional email placed in extra_claims")
	roles := flag.String("roles", "", "Optional comma-separated roles placed in extra_claims")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	outputFormat := flag.String("format", "compact", "Output format: compact, full, or debug")
	flag.Parse()

	sub := *subject
	if sub == "" {
		sub = uuid.NewString()
	}
	if _, err := uuid.Parse(sub); err != nil {
		fmt.Fprintf(os.Stderr, "Error: subject must be a UUID: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	expiresAt := now.Add(*expiry)

	extraClaims := map[string]interface{}{}
	if *email != "" {
		extraClaims["email"] = *email
	}
	if *roles != "" {
		extraClaims["roles"] = strings.Split(*roles, ",")
	}

	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if len(extraClaims) > 0 {
		claims["extra_claims"] = extraClaims
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		slog.Error("Failed to sign token", "err", err)
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "compact":
		fmt.Println(tokenStr)
	case "full":
		fmt.Printf("Token: %s\nSubject: %s\nExpires: %s\n", tokenStr, sub, expiresAt.Format(time.RFC3339))
	case "debug":
		parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(*secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			slog.Error("Failed to parse generated token", "err", err)
			fmt.Fprintf(os.Stderr, "Error: Failed to parse generated token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("=== Token Information ===\n")
		fmt.Printf("Token: %s\n\n", tokenStr)
		fmt.Printf("=== Token Header ===\n")
		headerJSON, _ := json.MarshalIndent(parsed.Header, "", "  ")
		fmt.Printf("%s\n\n", headerJSON)
		fmt.Printf("=== Token Claims ===\n")
		claimsJSON, _ := json.MarshalIndent(parsed.Claims, "", "  ")
		fmt.Printf("%s\n\n", claimsJSON)
		fmt.Printf("Expires: %s\n", expiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown output format: %s\n", *outputFormat)
		os.Exit(1)
	}
}
