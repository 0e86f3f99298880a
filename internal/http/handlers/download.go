package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// VideoDownload serves the stored artifact. Inline data URIs are decoded and
// sent as an attachment; remote URIs are redirected to.
func (a *App) VideoDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	uri, err := a.Videos.ResultURI(r.Context(), a.currentUserID(r), jobID)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	if uri == "" {
		a.error(w, http.StatusBadRequest, codeNoResult, message(r, codeNoResult))
		return
	}
	if !strings.HasPrefix(uri, "data:") {
		http.Redirect(w, r, uri, http.StatusFound)
		return
	}

	mimeType, data, err := decodeDataURI(uri)
	if err != nil {
		a.serviceError(w, r, fmt.Errorf("decode stored result of %s: %w", jobID, err))
		return
	}
	ext := "png"
	if strings.Contains(mimeType, "video") {
		ext = "mp4"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="generated-%s.%s"`, jobID, ext))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// decodeDataURI parses data:<mime>;base64,<payload>.
func decodeDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("data uri without payload")
	}
	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data uri encoding %q", encoding)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}
