package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"veostudio/internal/infra"
	"veostudio/internal/infra/credentials"
	"veostudio/internal/providers/vertex"
)

func main() {
	var (
		fileFlag     string
		storeFlag    bool
		tokenURLFlag string
	)
	flag.StringVar(&fileFlag, "file", "", "path to the service account JSON key (falls back to GCP_SERVICE_ACCOUNT)")
	flag.BoolVar(&storeFlag, "store", false, "persist the key in the integration secret store (requires DATABASE_URL)")
	flag.StringVar(&tokenURLFlag, "token-url", "", "override the OAuth token endpoint")
	flag.Parse()

	_ = godotenv.Load()

	raw, err := readKey(fileFlag)
	if err != nil {
		exitWithError(err)
	}

	logger := infra.NewLogger("cli", "vertexcheck")
	provider := vertex.NewCredentialProvider(vertex.CredentialOptions{
		ServiceAccountJSON: raw,
		TokenURL:           tokenURLFlag,
		Logger:             logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := provider.Token(ctx)
	if err != nil {
		exitWithError(fmt.Errorf("token exchange failed: %w", err))
	}
	fmt.Printf("service account %s is valid; token expires %s\n", provider.ClientEmail(), token.Expiry.Format(time.RFC3339))

	if !storeFlag {
		return
	}
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(fmt.Errorf("DATABASE_URL is required with -store"))
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to create pool: %w", err))
	}
	defer pool.Close()

	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.SetServiceAccount(ctx, raw); err != nil {
		exitWithError(fmt.Errorf("failed to persist service account: %w", err))
	}
	fmt.Println("service account stored successfully")
}

func readKey(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read key file: %w", err)
		}
		return string(b), nil
	}
	if raw := strings.TrimSpace(os.Getenv("GCP_SERVICE_ACCOUNT")); raw != "" {
		return raw, nil
	}
	return "", fmt.Errorf("a service account is required via -file or GCP_SERVICE_ACCOUNT")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
