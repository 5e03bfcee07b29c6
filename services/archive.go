package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/storage"
	"github.com/google/uuid"
)

// BracketSnapshot is the archived state of a finished tournament.
type BracketSnapshot struct {
	Tournament   *models.Tournament          `json:"tournament"`
	Participants []*models.Participant       `json:"participants"`
	Matches      []*models.Match             `json:"matches"`
	Standings    []models.TournamentStanding `json:"standings"`
	ArchivedAt   time.Time                   `json:"archived_at"`
}

// BracketArchiver persists snapshots outside the database.
type BracketArchiver interface {
	Archive(ctx context.Context, snapshot *BracketSnapshot) (string, error)
}

type storageArchiver struct {
	uploader storage.FileUploader
}

func NewStorageArchiver(uploader storage.FileUploader) BracketArchiver {
	return &storageArchiver{uploader: uploader}
}

func archiveKey(tournamentID int) string {
	return fmt.Sprintf("brackets/%d/%s.json", tournamentID, uuid.NewString())
}

func (a *storageArchiver) Archive(ctx context.Context, snapshot *BracketSnapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode bracket snapshot: %w", err)
	}
	result, err := a.uploader.Upload(ctx, archiveKey(snapshot.Tournament.ID), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	return result.Location, nil
}
