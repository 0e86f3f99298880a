package videogen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"veostudio/internal/domain"
	"veostudio/internal/providers/prompt"
	"veostudio/internal/providers/video"
)

// ReferenceMedia is one uploaded reference image or clip.
type ReferenceMedia struct {
	MimeType string
	Data     []byte
}

// SubmitInput is a user generation request.
type SubmitInput struct {
	OwnerID         string
	Prompt          string
	Model           string
	DurationSeconds string
	FrameSize       string
	Resolution      string
	Preset          string
	Translate       bool
	GenerateAudio   bool
	References      []ReferenceMedia
}

// Submit records a job and starts the upstream operation. It returns as soon
// as the operation handle is stored; completion is observed by Reconcile.
// Once the job row exists, every failure leaves it failed.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Job, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, domain.ErrUnauthorized
	}
	rawPrompt := strings.TrimSpace(in.Prompt)
	if rawPrompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	preset, err := domain.ParsePreset(in.Preset)
	if err != nil {
		return nil, err
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.defaultModel
	}
	seconds := strings.TrimSpace(in.DurationSeconds)
	if seconds == "" {
		seconds = "5"
	}
	frameSize := strings.TrimSpace(in.FrameSize)
	if frameSize == "" {
		frameSize = defaultFrameSize
	}
	resolution := strings.TrimSpace(in.Resolution)
	if resolution == "" {
		resolution = "720p"
	}

	job := &domain.Job{
		ID:              s.newID(),
		OwnerID:         in.OwnerID,
		Prompt:          rawPrompt,
		Model:           model,
		DurationSeconds: seconds,
		FrameSize:       frameSize,
		Status:          domain.JobStatusProcessing,
		Progress:        domain.InitialProgress,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	log := s.logger.With().Str("job_id", job.ID).Str("model", model).Logger()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("videogen: submit panicked")
			s.markFailed(ctx, job.ID, "internal error during submission")
			panic(p)
		}
	}()

	enriched := s.enricher.Enrich(ctx, prompt.Request{
		Prompt:    rawPrompt,
		Preset:    preset,
		Translate: in.Translate,
		Audio:     in.GenerateAudio,
	})
	finalPrompt := enriched.Prompt
	if strings.TrimSpace(finalPrompt) == "" {
		finalPrompt = rawPrompt
	}

	req := video.SubmitRequest{
		Prompt:          finalPrompt,
		DurationSeconds: parseDurationSeconds(seconds),
		GenerateAudio:   in.GenerateAudio,
		Resolution:      resolution,
		AspectRatio:     AspectRatio(frameSize),
	}
	for _, ref := range in.References {
		if len(ref.Data) == 0 {
			continue
		}
		req.References = append(req.References, video.Reference{MimeType: ref.MimeType, Data: ref.Data})
	}

	token, err := s.tokens.AcquireToken(ctx)
	if err != nil {
		log.Error().Err(err).Msg("videogen: submit without credentials")
		s.markFailed(ctx, job.ID, domain.ErrCredentialAcquisition.Error())
		if !errors.Is(err, domain.ErrCredentialAcquisition) {
			err = fmt.Errorf("%w: %v", domain.ErrCredentialAcquisition, err)
		}
		return nil, err
	}

	handle, err := s.videos.Submit(ctx, token, model, req)
	if err != nil {
		err = classifySubmitError(err)
		log.Error().Err(err).Msg("videogen: upstream submit failed")
		s.markFailed(ctx, job.ID, err.Error())
		return nil, err
	}

	// The upstream operation already exists; its handle is recorded even
	// when the caller has gone away.
	attachCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	attached, err := s.jobs.AttachOperation(attachCtx, job.ID, handle)
	if err != nil {
		log.Error().Err(err).Str("operation", handle).Msg("videogen: attach operation failed")
		s.markFailed(ctx, job.ID, "could not record operation handle")
		return nil, fmt.Errorf("attach operation: %w", err)
	}
	if !attached {
		log.Warn().Str("operation", handle).Msg("videogen: job vanished before operation was recorded")
		return nil, fmt.Errorf("attach operation: %w", domain.ErrNotFound)
	}

	job.OperationHandle = handle
	log.Info().Str("operation", handle).Int("references", len(req.References)).Bool("enriched", enriched.Enriched).Msg("videogen: submitted")
	return job, nil
}

// classifySubmitError turns an upstream rejection that mentions billing into
// domain.ErrUpstreamBilling; other errors pass through unchanged.
func classifySubmitError(err error) error {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && strings.Contains(strings.ToLower(upstream.Message), "billing") {
		return fmt.Errorf("%w: %s", domain.ErrUpstreamBilling, upstream.Message)
	}
	return err
}
