// Package service provides the library service bridging HTTP handlers and
// the media file store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vodarr/vodarr/internal/codec"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/streaming"
)

// LibraryService resolves content and file identifiers to media files and
// registers files into the library.
type LibraryService struct {
	files  repository.MediaFileRepository
	logger *slog.Logger
}

// NewLibraryService creates a library service.
func NewLibraryService(files repository.MediaFileRepository, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryService{
		files:  files,
		logger: logger.With(slog.String("component", "library")),
	}
}

// Register adds a file on disk to the library under a content item. Stream
// metadata stays empty until the first playback request probes it; the
// container is pre-filled from the extension as a hint.
func (s *LibraryService) Register(ctx context.Context, contentID models.ULID, path string) (*models.MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", streaming.ErrSourceFileMissing, path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	file := &models.MediaFile{
		ContentID: contentID,
		Path:      path,
		Size:      info.Size(),
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		file.Container = string(codec.NormalizeContainer(ext, path))
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "media file registered",
		slog.String("file_id", file.ID.String()),
		slog.String("path", path),
	)
	return file, nil
}

// GetFile resolves a file ID.
func (s *LibraryService) GetFile(ctx context.Context, fileID models.ULID) (*models.MediaFile, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: media file %s", streaming.ErrNotFound, fileID)
	}
	return file, nil
}

// ResolveContent returns the playback file for a content item. Multiple
// files for one item resolve to the oldest registration.
func (s *LibraryService) ResolveContent(ctx context.Context, contentID models.ULID) (*models.MediaFile, error) {
	files, err := s.files.GetByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: content %s", streaming.ErrNoMediaFile, contentID)
	}
	return files[0], nil
}

// ListContent returns all files for a content item.
func (s *LibraryService) ListContent(ctx context.Context, contentID models.ULID) ([]*models.MediaFile, error) {
	return s.files.GetByContentID(ctx, contentID)
}

// Remove deletes a file record from the library. The file on disk is left
// alone; the library does not own the media.
func (s *LibraryService) Remove(ctx context.Context, fileID models.ULID) error {
	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return err
	}
	return s.files.Delete(ctx, file.ID)
}
