package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/storage"
)

// BracketArchive is the document published for a finished tournament.
type BracketArchive struct {
	Tournament *models.Tournament `json:"tournament"`
	ArchivedAt time.Time          `json:"archived_at"`
}

// BracketArchiver publishes the complete bracket of a tournament to object storage.
type BracketArchiver interface {
	Archive(ctx context.Context, tournamentName string) (*storage.UploadResult, error)
}

type bracketArchiver struct {
	tournaments TournamentService
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewBracketArchiver(tournaments TournamentService, uploader storage.FileUploader, logger *slog.Logger) BracketArchiver {
	return &bracketArchiver{tournaments: tournaments, uploader: uploader, logger: logger}
}

func ArchiveKey(tournamentID string) string {
	return fmt.Sprintf("tournaments/%s/bracket.json", tournamentID)
}

func (a *bracketArchiver) Archive(ctx context.Context, tournamentName string) (*storage.UploadResult, error) {
	t, err := a.tournaments.GetByName(ctx, tournamentName)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(BracketArchive{Tournament: t, ArchivedAt: nowUTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket of %s: %w", t.Name, err)
	}

	res, err := a.uploader.Upload(ctx, ArchiveKey(t.ID), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	a.logger.Info("bracket archived", slog.String("tournament", t.Name), slog.String("location", res.Location))
	return res, nil
}
