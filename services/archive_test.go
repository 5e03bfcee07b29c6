package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aanujkhurana/AAA-SportsTournament/models"
	"github.com/aanujkhurana/AAA-SportsTournament/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (u *memUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = body
	u.types[key] = contentType
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://archive.example.com/" + key
}

func TestStorageArchiver(t *testing.T) {
	uploader := &memUploader{objects: map[string][]byte{}, types: map[string]string{}}
	archiver := NewStorageArchiver(uploader)

	winner := 3
	snapshot := &BracketSnapshot{
		Tournament: &models.Tournament{ID: 42, Name: "Cup", WinnerParticipantID: &winner},
		Standings:  []models.TournamentStanding{{ParticipantID: 3, Rank: 1}},
		ArchivedAt: testNow,
	}
	location, err := archiver.Archive(context.Background(), snapshot)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, "https://archive.example.com/brackets/42/"), location)
	require.Len(t, uploader.objects, 1)

	for key, body := range uploader.objects {
		assert.True(t, strings.HasSuffix(key, ".json"))
		assert.Equal(t, "application/json", uploader.types[key])

		var decoded BracketSnapshot
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, 42, decoded.Tournament.ID)
		require.Len(t, decoded.Standings, 1)
		assert.Equal(t, 1, decoded.Standings[0].Rank)
	}

	// второй архив не перезаписывает первый
	_, err = archiver.Archive(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Len(t, uploader.objects, 2)

	uploader.err = errors.New("bucket unavailable")
	_, err = archiver.Archive(context.Background(), snapshot)
	assert.Error(t, err)
}
