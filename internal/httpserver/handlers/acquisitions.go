package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/curator/internal/acquisitions"
	"github.com/MrSnakeDoc/curator/internal/domain"
	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
	"github.com/MrSnakeDoc/curator/internal/utils"
)

// Multipart parts kept in memory before spilling to temp files.
const multipartMemory = 8 << 20

// Form field names.
const (
	fieldName         = "name"
	fieldDescription  = "description"
	fieldDateAcquired = "dateAcquired"
	fieldSource       = "source"
	fieldTags         = "tags"
	fieldImage        = "image"
)

func CreateAcquisition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := parseForm(w, r, d.MaxBodySize)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		defer form.cleanup()

		for _, field := range []string{fieldName, fieldDescription, fieldDateAcquired, fieldSource} {
			if _, ok := form.value(field); !ok {
				writeError(w, r, d.Logger, fmt.Errorf("missing form field %q: %w", field, domain.ErrInvalidInput))
				return
			}
		}

		name, _ := form.value(fieldName)
		description, _ := form.value(fieldDescription)
		source, _ := form.value(fieldSource)
		rawDate, _ := form.value(fieldDateAcquired)
		rawTags, _ := form.value(fieldTags)

		date, err := domain.ParseDate(rawDate)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		image, err := form.image()
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if image == nil {
			writeError(w, r, d.Logger, domain.ErrImageMissing)
			return
		}

		out, err := d.Acquisitions.Create(r.Context(), acquisitions.CreateInput{
			Name:         strings.TrimSpace(name),
			Description:  description,
			DateAcquired: date,
			Source:       source,
			Tags:         domain.ParseTags(rawTags),
			Image:        image,
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, out.Acquisition)
	}
}

func ListAcquisitions(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := d.Acquisitions.List(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func GetAcquisition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Acquisitions.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out.Acquisition)
	}
}

// UpdateAcquisition treats a field as supplied when its part is present,
// even if empty. An empty tags part clears the tags.
func UpdateAcquisition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := parseForm(w, r, d.MaxBodySize)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		defer form.cleanup()

		var in acquisitions.UpdateInput

		if v, ok := form.value(fieldName); ok {
			v = strings.TrimSpace(v)
			in.Name = &v
		}
		if v, ok := form.value(fieldDescription); ok {
			in.Description = &v
		}
		if v, ok := form.value(fieldSource); ok {
			in.Source = &v
		}
		if v, ok := form.value(fieldTags); ok {
			tags := domain.ParseTags(v)
			in.Tags = &tags
		}
		if v, ok := form.value(fieldDateAcquired); ok {
			date, err := domain.ParseDate(v)
			if err != nil {
				writeError(w, r, d.Logger, err)
				return
			}
			in.DateAcquired = &date
		}

		if in.Image, err = form.image(); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		out, err := d.Acquisitions.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out.Acquisition)
	}
}

func DeleteAcquisition(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := d.Acquisitions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type multipartForm struct {
	*multipart.Form
}

// parseForm caps the body at maxBody bytes and parses it as multipart/form-data.
func parseForm(w http.ResponseWriter, r *http.Request, maxBody int64) (*multipartForm, error) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrImageTooLarge, tooLarge.Limit)
		case errors.Is(err, http.ErrNotMultipart):
			return nil, fmt.Errorf("expected multipart/form-data body: %w", domain.ErrInvalidInput)
		default:
			return nil, fmt.Errorf("malformed multipart body: %v: %w", err, domain.ErrInvalidInput)
		}
	}
	return &multipartForm{Form: r.MultipartForm}, nil
}

func (f *multipartForm) cleanup() {
	_ = f.RemoveAll()
}

// value reports the first value of a field and whether the field was sent at all.
func (f *multipartForm) value(field string) (string, bool) {
	vs, ok := f.Value[field]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// image returns the uploaded image part, or nil when none was sent.
// An empty file part without a filename counts as not sent.
func (f *multipartForm) image() (*acquisitions.Image, error) {
	files := f.File[fieldImage]
	if len(files) == 0 {
		return nil, nil
	}
	fh := files[0]
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read image part: %v: %w", err, domain.ErrInvalidInput)
	}
	defer utils.Close(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read image part: %v: %w", err, domain.ErrInvalidInput)
	}

	return &acquisitions.Image{
		Data:        data,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}, nil
}
