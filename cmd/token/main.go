// Package main mints and revokes development access tokens for the
// civic-services API using the same signing settings as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cityconnect/internal/identity"
	"cityconnect/internal/identity/revocation"
	"cityconnect/internal/platform/config"
	platformredis "cityconnect/internal/platform/redis"
	"cityconnect/pkg/domain"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	JTI       string    `json:"jti"`
	Role      string    `json:"role"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	var (
		role        string
		department  string
		subject     string
		affiliation string
		ttl         time.Duration
		revoke      string
		jsonOutput  bool
	)
	fs.StringVar(&role, "role", "citizen", "actor role (citizen, department, admin)")
	fs.StringVar(&department, "department", "", "department, required for the department role")
	fs.StringVar(&subject, "subject", "", "subject id of the actor")
	fs.StringVar(&affiliation, "affiliation", "", "home department of a citizen (affiliated announcement scope)")
	fs.DurationVar(&ttl, "ttl", cfg.Auth.TokenTTL, "token lifetime")
	fs.StringVar(&revoke, "revoke", "", "revoke this token instead of minting one (requires REDIS_URL)")
	fs.BoolVar(&jsonOutput, "json", false, "print the token with its claims as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if revoke != "" {
		return revokeToken(ctx, cfg, revoke, stdout)
	}

	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	actor, err := domain.NewActor(parsedRole, department, subject)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("-ttl must be positive")
	}

	issuer := identity.NewIssuer(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience, ttl)
	token, claims, err := issuer.Issue(actor.WithAffiliation(affiliation))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if !jsonOutput {
		_, err = fmt.Fprintln(stdout, token)
		return err
	}
	return json.NewEncoder(stdout).Encode(tokenOutput{
		Token:     token,
		JTI:       claims.JTI(),
		Role:      claims.Role,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

func revokeToken(ctx context.Context, cfg config.Server, token string, stdout io.Writer) error {
	verifier := identity.NewVerifier(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	claims, err := verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		return err
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("REDIS_URL is required to revoke tokens")
	}
	defer client.Close()

	if err := revocation.NewRedisTRL(client.Client).Revoke(ctx, claims.JTI(), claims.TTL(time.Now())); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "revoked %s\n", claims.JTI())
	return err
}
