package handlers

import (
	"errors"
	"net/http"

	"veostudio/internal/domain"
)

type meResponse struct {
	ID      string `json:"id"`
	Credits int    `json:"credits"`
}

// Me returns the caller's credit balance. Accounts without a row yet carry
// the default grant.
func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, codeUnauthorized, message(r, codeUnauthorized))
		return
	}
	credits, err := a.Users.Credits(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		credits, err = domain.DefaultCredits, nil
	}
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, meResponse{ID: userID, Credits: credits})
}
