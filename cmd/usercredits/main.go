package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"veostudio/internal/adapter/repo"
	"veostudio/internal/domain"
	"veostudio/internal/infra"
	"veostudio/internal/middleware"
)

func main() {
	var (
		idFlag    string
		emailFlag string
		addFlag   int
		setFlag   int
		tokenFlag time.Duration
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.IntVar(&addFlag, "add", 0, "credits to add (negative to deduct)")
	flag.IntVar(&setFlag, "set", -1, "overwrite the balance (set <0 to keep current value)")
	flag.DurationVar(&tokenFlag, "token", 0, "also print a session token valid for this long (requires JWT_SECRET)")
	flag.Parse()

	_ = godotenv.Load()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	if addFlag != 0 && setFlag >= 0 {
		exitWithError(errors.New("-add and -set are mutually exclusive"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "usercredits")
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	if userID == "" {
		userID, err = users.IDByEmail(ctx, email)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load user %s: %w", email, err))
		}
	}

	var user *domain.User
	switch {
	case setFlag >= 0:
		user, err = users.SetCredits(ctx, userID, setFlag)
	default:
		user, err = users.AddCredits(ctx, userID, addFlag)
	}
	if err != nil {
		exitWithError(fmt.Errorf("failed to update credits: %w", err))
	}
	fmt.Printf("User %s (%s) now has %d credits\n", user.ID, user.Email, user.Credits)

	if tokenFlag <= 0 {
		return
	}
	token, err := middleware.SignJWT(os.Getenv("JWT_SECRET"), middleware.TokenClaims{
		Claims: jwt.Claims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Expiry:   jwt.NewNumericDate(time.Now().Add(tokenFlag)),
		},
	})
	if err != nil {
		exitWithError(fmt.Errorf("failed to sign session token: %w", err))
	}
	fmt.Println(token)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
