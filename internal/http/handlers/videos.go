package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"veostudio/internal/domain"
	"veostudio/internal/videogen"
)

const (
	defaultReferenceMime = "image/png"
	maxSyncBodyBytes     = 64 << 10
)

var referenceFields = []string{"input_reference", "input_reference[]"}

type jobDTO struct {
	ID            string     `json:"id"`
	Prompt        string     `json:"prompt"`
	Model         string     `json:"model"`
	Seconds       string     `json:"seconds"`
	Size          string     `json:"size"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	OperationName string     `json:"operation_name,omitempty"`
	Error         string     `json:"error,omitempty"`
	HasResult     bool       `json:"has_result"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// toDTO never includes the result payload; clients fetch it through the
// url and download endpoints.
func toDTO(job *domain.Job) jobDTO {
	return jobDTO{
		ID:            job.ID,
		Prompt:        job.Prompt,
		Model:         job.Model,
		Seconds:       job.DurationSeconds,
		Size:          job.FrameSize,
		Status:        string(job.Status),
		Progress:      job.Progress,
		OperationName: job.OperationHandle,
		Error:         job.ErrorMessage,
		HasResult:     job.HasResult || job.ResultURI != "",
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
}

func (a *App) VideosSubmit(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, codeUnauthorized, message(r, codeUnauthorized))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	if err := r.ParseMultipartForm(a.maxUploadBytes()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		a.error(w, http.StatusBadRequest, codeBadRequest, message(r, codeBadRequest))
		return
	}
	refs, err := readReferences(r.MultipartForm)
	if err != nil {
		a.error(w, http.StatusBadRequest, codeBadRequest, message(r, codeBadRequest))
		return
	}

	job, err := a.Videos.Submit(r.Context(), videogen.SubmitInput{
		OwnerID:         userID,
		Prompt:          r.FormValue("prompt"),
		Model:           r.FormValue("model"),
		DurationSeconds: r.FormValue("seconds"),
		FrameSize:       r.FormValue("size"),
		Resolution:      r.FormValue("resolution"),
		Preset:          r.FormValue("preset"),
		Translate:       formBool(r, "translatePrompt"),
		GenerateAudio:   formBool(r, "generateAudio"),
		References:      refs,
	})
	if err != nil {
		a.submitError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toDTO(job))
}

func (a *App) VideosList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Videos.ListJobs(r.Context(), a.currentUserID(r))
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	items := make([]jobDTO, 0, len(jobs))
	for i := range jobs {
		items = append(items, toDTO(&jobs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) VideoGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Videos.GetJob(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDTO(job))
}

func (a *App) VideoURL(w http.ResponseWriter, r *http.Request) {
	uri, err := a.Videos.ResultURI(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	var body struct {
		URL *string `json:"url"`
	}
	if uri != "" {
		body.URL = &uri
	}
	a.json(w, http.StatusOK, body)
}

// VideoSync reconciles one job and answers with the job, or null when the
// reconcile could not run this time.
func (a *App) VideoSync(w http.ResponseWriter, r *http.Request) {
	job, err := a.Videos.ReconcileOwned(r.Context(), a.currentUserID(r), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized):
		a.serviceError(w, r, err)
		return
	case err != nil:
		log := a.requestLogger(r)
		log.Warn().Err(err).Str("job_id", chi.URLParam(r, "id")).Msg("sync skipped")
		a.json(w, http.StatusOK, nil)
		return
	case job == nil:
		a.json(w, http.StatusOK, nil)
		return
	}
	a.json(w, http.StatusOK, toDTO(job))
}

type syncBatchRequest struct {
	IDs []string `json:"ids"`
}

// VideosSyncBatch reconciles up to videogen.MaxBatchSize jobs. Ids past the
// cap and ids that fail are absent from the response.
func (a *App) VideosSyncBatch(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, codeUnauthorized, message(r, codeUnauthorized))
		return
	}
	var req syncBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSyncBodyBytes)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, codeBadRequest, message(r, codeBadRequest))
		return
	}
	jobs := a.Videos.ReconcileManyOwned(r.Context(), userID, req.IDs)
	items := make([]jobDTO, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toDTO(job))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) VideoDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Videos.DeleteJob(r.Context(), a.currentUserID(r), chi.URLParam(r, "id")); err != nil {
		a.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) VideosDeleteLatest(w http.ResponseWriter, r *http.Request) {
	id, err := a.Videos.DeleteLatest(r.Context(), a.currentUserID(r))
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id})
}

func (a *App) maxUploadBytes() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue(key)))
	return v
}

// readReferences loads the uploaded reference files. Empty parts are skipped.
func readReferences(form *multipart.Form) ([]videogen.ReferenceMedia, error) {
	if form == nil {
		return nil, nil
	}
	var refs []videogen.ReferenceMedia
	for _, field := range referenceFields {
		for _, fh := range form.File[field] {
			if fh == nil || fh.Size <= 0 {
				continue
			}
			data, err := readPart(fh)
			if err != nil {
				return nil, err
			}
			if len(data) == 0 {
				continue
			}
			mimeType := strings.TrimSpace(fh.Header.Get("Content-Type"))
			if mimeType == "" {
				mimeType = defaultReferenceMime
			}
			refs = append(refs, videogen.ReferenceMedia{MimeType: mimeType, Data: data})
		}
	}
	return refs, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
