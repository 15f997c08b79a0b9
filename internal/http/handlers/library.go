package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/service"
)

// LibraryHandler exposes media file registration and lookup.
type LibraryHandler struct {
	library *service.LibraryService
}

// NewLibraryHandler creates a library handler.
func NewLibraryHandler(library *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{library: library}
}

// RegisterFileInput registers a file on disk under a content item.
type RegisterFileInput struct {
	Body struct {
		ContentID string `json:"content_id" doc:"Content item the file belongs to (ULID)"`
		Path      string `json:"path" doc:"Absolute path of the media file on disk"`
	}
}

// RegisterFileOutput returns the created record.
type RegisterFileOutput struct {
	Body models.MediaFile
}

// GetFileInput identifies one media file.
type GetFileInput struct {
	FileID string `path:"fileID" doc:"Media file ULID"`
}

// GetFileOutput returns one media file.
type GetFileOutput struct {
	Body models.MediaFile
}

// ListContentFilesInput identifies a content item.
type ListContentFilesInput struct {
	ContentID string `path:"contentID" doc:"Content item ULID"`
}

// ListContentFilesOutput returns the files of a content item.
type ListContentFilesOutput struct {
	Body struct {
		Files []*models.MediaFile `json:"files"`
	}
}

// DeleteFileInput identifies one media file.
type DeleteFileInput struct {
	FileID string `path:"fileID" doc:"Media file ULID"`
}

// DeleteFileOutput is empty.
type DeleteFileOutput struct{}

// Register registers the library routes with the API.
func (h *LibraryHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "registerMediaFile",
		Method:      "POST",
		Path:        "/api/v1/library/files",
		Summary:     "Register a media file",
		Tags:        []string{"Library"},
	}, h.RegisterFile)

	huma.Register(api, huma.Operation{
		OperationID: "getMediaFile",
		Method:      "GET",
		Path:        "/api/v1/library/files/{fileID}",
		Summary:     "Get a media file",
		Tags:        []string{"Library"},
	}, h.GetFile)

	huma.Register(api, huma.Operation{
		OperationID: "listContentFiles",
		Method:      "GET",
		Path:        "/api/v1/library/content/{contentID}/files",
		Summary:     "List files of a content item",
		Tags:        []string{"Library"},
	}, h.ListContentFiles)

	huma.Register(api, huma.Operation{
		OperationID: "deleteMediaFile",
		Method:      "DELETE",
		Path:        "/api/v1/library/files/{fileID}",
		Summary:     "Remove a media file from the library",
		Description: "Deletes the library record only; the file on disk is untouched.",
		Tags:        []string{"Library"},
	}, h.DeleteFile)
}

// RegisterFile adds a file on disk to the library.
func (h *LibraryHandler) RegisterFile(ctx context.Context, input *RegisterFileInput) (*RegisterFileOutput, error) {
	contentID, err := models.ParseULID(input.Body.ContentID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid content ID", err)
	}

	file, err := h.library.Register(ctx, contentID, input.Body.Path)
	if err != nil {
		return nil, humaError(err)
	}
	return &RegisterFileOutput{Body: *file}, nil
}

// GetFile returns one media file record.
func (h *LibraryHandler) GetFile(ctx context.Context, input *GetFileInput) (*GetFileOutput, error) {
	fileID, err := models.ParseULID(input.FileID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid file ID", err)
	}

	file, err := h.library.GetFile(ctx, fileID)
	if err != nil {
		return nil, humaError(err)
	}
	return &GetFileOutput{Body: *file}, nil
}

// ListContentFiles returns all files of a content item.
func (h *LibraryHandler) ListContentFiles(ctx context.Context, input *ListContentFilesInput) (*ListContentFilesOutput, error) {
	contentID, err := models.ParseULID(input.ContentID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid content ID", err)
	}

	files, err := h.library.ListContent(ctx, contentID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &ListContentFilesOutput{}
	out.Body.Files = files
	return out, nil
}

// DeleteFile removes a media file record.
func (h *LibraryHandler) DeleteFile(ctx context.Context, input *DeleteFileInput) (*DeleteFileOutput, error) {
	fileID, err := models.ParseULID(input.FileID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid file ID", err)
	}

	if err := h.library.Remove(ctx, fileID); err != nil {
		return nil, humaError(err)
	}
	return &DeleteFileOutput{}, nil
}
