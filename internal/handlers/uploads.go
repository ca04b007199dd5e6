package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperror"
	"github.com/vidtube/backend/internal/storage"
)

// maxFieldBytes bounds a single non-file multipart field.
const maxFieldBytes = 64 << 10

// UploadLimits tells the handlers where to stage uploads and how large they may be.
type UploadLimits struct {
	Dir           string
	MaxImageBytes int64
	MaxVideoBytes int64
}

// multipartForm holds the text fields and staged files of one request.
type multipartForm struct {
	values map[string]string
	files  map[string]storage.StagedFile
}

func (f *multipartForm) value(name string) string {
	return f.values[name]
}

func (f *multipartForm) file(name string) storage.StagedFile {
	return f.files[name]
}

func (f *multipartForm) discard() {
	for _, file := range f.files {
		file.Discard()
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// readMultipart streams every part of the request. File parts named in
// limits are written to the staging directory, other file parts are
// skipped. On error nothing stays staged.
func readMultipart(w http.ResponseWriter, r *http.Request, dir string, limits map[string]int64) (*multipartForm, error) {
	var total int64 = 1 << 20
	for _, limit := range limits {
		total += limit
	}
	r.Body = http.MaxBytesReader(w, r.Body, total)

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apperror.Wrap(apperror.KindBadRequest, "expected multipart form data", err)
	}

	form := &multipartForm{values: map[string]string{}, files: map[string]storage.StagedFile{}}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			form.discard()
			return nil, apperror.Wrap(apperror.KindBadRequest, "malformed multipart body", err)
		}

		name := part.FormName()
		if part.FileName() == "" {
			raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			part.Close()
			if err != nil {
				form.discard()
				return nil, apperror.Wrap(apperror.KindBadRequest, "malformed multipart body", err)
			}
			if len(raw) > maxFieldBytes {
				form.discard()
				return nil, apperror.BadRequest(name + " exceeds the size limit")
			}
			form.values[name] = string(raw)
			continue
		}

		limit, wanted := limits[name]
		if !wanted {
			_, _ = io.Copy(io.Discard, part)
			part.Close()
			continue
		}
		if previous, ok := form.files[name]; ok {
			previous.Discard()
		}

		staged, err := storage.StageUpload(dir, part.FileName(), part.Header.Get("Content-Type"), part, limit)
		part.Close()
		var bodyErr *http.MaxBytesError
		switch {
		case errors.Is(err, storage.ErrTooLarge), errors.As(err, &bodyErr):
			form.discard()
			return nil, apperror.BadRequest(name + " exceeds the size limit")
		case err != nil:
			form.discard()
			return nil, apperror.Internal("failed to stage upload", err)
		}
		form.files[name] = staged
	}
}
