package vertex

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoints resolves publisher model URLs for one project and region.
type Endpoints struct {
	baseURL   string
	projectID string
	location  string
}

// NewEndpoints builds the resolver. An empty baseURL resolves to the regional
// aiplatform host.
func NewEndpoints(baseURL, projectID, location string) Endpoints {
	location = strings.TrimSpace(location)
	if location == "" {
		location = "us-central1"
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}
	return Endpoints{
		baseURL:   base,
		projectID: strings.TrimSpace(projectID),
		location:  location,
	}
}

// ModelURL returns the URL of a custom method (e.g. "predictLongRunning") on
// a Google publisher model.
func (e Endpoints) ModelURL(model, method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:%s",
		e.baseURL,
		url.PathEscape(e.projectID),
		url.PathEscape(e.location),
		url.PathEscape(model),
		method,
	)
}

func (e Endpoints) ProjectID() string { return e.projectID }

func (e Endpoints) Location() string { return e.location }
