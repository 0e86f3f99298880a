package domain

// DefaultCredits is granted to every new account.
const DefaultCredits = 5

// User represents an authenticated account. Sign-in and billing live outside
// this service; only the credit balance is read here.
type User struct {
	ID      string
	Email   string
	Credits int
}
