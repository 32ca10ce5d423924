// Command admin-token mints an HS256 operator token for the admin API.
//
//	JWT_SECRET=... admin-token --subject ops --name "Night Shift" --scope invitations:write
package main

import (
	"fmt"
	"os"
	"time"

	httpapi "github.com/aussiebroadwan/bakeboard/internal/admin/http"
	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
	flag "github.com/spf13/pflag"
)

func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 secret (default $JWT_SECRET)")
	issuer := flag.String("issuer", envOr("JWT_ISSUER", "bakeboard-admin"), "issuer claim (default $JWT_ISSUER)")
	subject := flag.StringP("subject", "s", "operator", "subject claim; a user id makes invitations record that user as sender")
	name := flag.StringP("name", "n", "", "display name shown as the invitation sender")
	scopes := flag.StringSlice("scope", httpapi.AllScopes, "granted scopes (repeatable)")
	ttl := flag.Duration("ttl", jwtx.DefaultOperatorTTL, "token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "admin-token: --secret or JWT_SECRET is required")
		flag.Usage()
		os.Exit(2)
	}

	signer, err := jwtx.NewHS256([]byte(*secret), *issuer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: %v\n", err)
		os.Exit(1)
	}

	token, err := signer.Sign(jwtx.NewClaims(*subject, *name, *scopes, *issuer, *ttl, time.Now()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
