package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"veostudio/internal/infra"
	"veostudio/internal/sqlinline"
)

const (
	ProviderVertex = "vertex"
)

// Store reads and writes integration secrets kept in Postgres. The Vertex
// service account lives here when it is not supplied through the environment.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// ServiceAccount returns the stored service account JSON, "" when none is stored.
func (s *Store) ServiceAccount(ctx context.Context) (string, error) {
	return s.Secret(ctx, ProviderVertex)
}

func (s *Store) Secret(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationSecret, provider)
	var secret string
	if err := row.Scan(&secret); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(secret), nil
}

// SetServiceAccount stores raw after checking it is a JSON object. The
// client email is kept in properties so operators can tell accounts apart.
func (s *Store) SetServiceAccount(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("service account json is required")
	}
	var meta struct {
		ClientEmail string `json:"client_email"`
		ProjectID   string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return errors.New("service account must be a json object")
	}
	props := map[string]any{}
	if meta.ClientEmail != "" {
		props["client_email"] = meta.ClientEmail
	}
	if meta.ProjectID != "" {
		props["project_id"] = meta.ProjectID
	}
	return s.upsert(ctx, ProviderVertex, raw, props)
}

func (s *Store) upsert(ctx context.Context, provider, secret string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationSecret, provider, secret, raw)
	return err
}
