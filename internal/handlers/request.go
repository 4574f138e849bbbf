package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/streamhub/backend/internal/apperr"
	"github.com/streamhub/backend/internal/auth"
	"github.com/streamhub/backend/internal/media"
	"github.com/streamhub/backend/internal/models"
	"github.com/streamhub/backend/internal/repositories"
)

const defaultMaxUploadBytes = 512 << 20

// multipartMemory is the share of a multipart body kept in memory before
// spilling parts to disk.
const multipartMemory = 32 << 20

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("invalid request body").Wrap(err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("upload exceeds the size limit").Wrap(err)
		}
		return apperr.Validation("invalid multipart body").Wrap(err)
	}
	return nil
}

// formFile opens the named part. It reports ok=false when the part is absent.
func formFile(r *http.Request, field string) (file multipart.File, up media.Upload, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, media.Upload{}, false, nil
		}
		return nil, media.Upload{}, false, apperr.Validation(fmt.Sprintf("invalid %s upload", field)).Wrap(err)
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, media.Upload{}, false, nil
	}
	return file, media.Upload{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, true, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Validation(fmt.Sprintf("invalid %s", name), name)
	}
	return id, nil
}

func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, apperr.Unauthorized("unauthorized request")
	}
	return user, nil
}

// storeError maps repository sentinels onto client errors.
func storeError(err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound(notFound).Wrap(err)
	case errors.Is(err, repositories.ErrConflict) && conflict != "":
		return apperr.Conflict(conflict).Wrap(err)
	default:
		return err
	}
}

// requireFields takes name/value pairs and fails listing every blank value.
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("all fields are required", missing...)
	}
	return nil
}
