package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/arenakit/tournament-engine/models"
	"github.com/arenakit/tournament-engine/storage"
)

// Archiver stores a snapshot of a finished tournament outside the hot path.
// The room owner decides when the live record is destroyed; the archive is
// what remains.
type Archiver interface {
	ArchiveTournament(ctx context.Context, t *models.Tournament) error
}

type archiveService struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewArchiveService(uploader storage.FileUploader, logger *slog.Logger) Archiver {
	return &archiveService{uploader: uploader, logger: logger}
}

func (s *archiveService) ArchiveTournament(ctx context.Context, t *models.Tournament) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament %s for archive: %w", t.ID, err)
	}

	key := fmt.Sprintf("tournaments/%s/%s.json", t.RoomID, t.ID)
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to upload tournament archive %s: %w", key, err)
	}

	s.logger.Info("archived completed tournament",
		slog.String("tournament_id", t.ID.String()),
		slog.String("key", result.Key))
	return nil
}
