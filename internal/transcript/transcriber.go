package transcript

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services"
	"arena/internal/services/remote"
)

// Service is the speech-to-text collaborator.
type Service interface {
	TranscribeLargeVideo(ctx context.Context, req remote.TranscribeRequest) (remote.TranscribeResult, error)
}

// Transcriber runs speech-to-text for segments that have no usable transcript.
type Transcriber struct {
	svc      Service
	language string
	logger   *slog.Logger
}

// NewTranscriber binds a speech-to-text service and the source-language hint.
func NewTranscriber(svc Service, language string, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		svc:      svc,
		language: strings.TrimSpace(language),
		logger:   logging.NewComponentLogger(logger, "transcriber"),
	}
}

// Transcribe runs speech-to-text over the segment video.
func (t *Transcriber) Transcribe(ctx context.Context, matchID string, seg matchstore.Segment) (Transcript, error) {
	label := seg.Kind.Label()
	if t == nil || t.svc == nil {
		return Transcript{}, services.Wrap(services.ErrConfiguration, "transcribing", "transcribe video", "speech-to-text service is not configured", nil)
	}
	if strings.TrimSpace(seg.FileURL) == "" {
		return Transcript{}, services.Wrap(services.ErrValidation, "transcribing", "transcribe video", "segment has no video url", nil)
	}

	logger := logging.WithContext(ctx, t.logger)
	logger.Info("transcription started",
		logging.String("video_url", seg.FileURL),
		logging.String("language", t.language),
	)
	started := time.Now()
	result, err := t.svc.TranscribeLargeVideo(ctx, remote.TranscribeRequest{
		VideoURL: seg.FileURL,
		MatchID:  matchID,
		Language: t.language,
	})
	if err != nil {
		return Transcript{}, err
	}
	text := strings.TrimSpace(result.Text)
	logger.Info("transcription completed",
		logging.Int("chars", len(text)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Transcript{Text: text, Source: SourceTranscribed, Label: label}, nil
}
