package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apierrors "lotpulse/internal/errors"
	api "lotpulse/pkg/contracts/api/v1"
)

// Upload request parameters
const (
	FileFormField  = "file"
	FileNameHeader = "X-File-Name"
	FileNameQuery  = "file_name"
)

// Accepted upload media types besides multipart/form-data
var uploadMediaTypes = map[string]bool{
	"":                         true,
	"text/csv":                 true,
	"text/plain":               true,
	"application/csv":          true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// readUpload returns the uploaded file name and content. The body is either
// a multipart form with a "file" field or the raw file.
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return "", nil, apierrors.ErrUnsupportedMediaType
		}
		mediaType = parsed
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", nil, wrapBodyError(err)
		}
		file, header, err := r.FormFile(FileFormField)
		if err != nil {
			return "", nil, apierrors.ErrValidation(FileFormField, "file is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, wrapBodyError(err)
		}
		return header.Filename, data, nil
	}

	if !uploadMediaTypes[mediaType] {
		return "", nil, apierrors.ErrUnsupportedMediaType
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, wrapBodyError(err)
	}

	name := r.Header.Get(FileNameHeader)
	if name == "" {
		name = r.URL.Query().Get(FileNameQuery)
	}
	return name, data, nil
}

// wrapBodyError keeps *http.MaxBytesError visible to the error handler.
func wrapBodyError(err error) error {
	return fmt.Errorf("read upload: %w", err)
}

// bindViewQuery reads platz, unassigned and top. Each repeated platz value
// is one lot, kept byte for byte so every entry of /lots can be selected.
func bindViewQuery(values url.Values) (api.ViewQuery, error) {
	var q api.ViewQuery

	for _, lot := range values["platz"] {
		if lot != "" {
			q.Platz = append(q.Platz, lot)
		}
	}

	if raw := values.Get("unassigned"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return q, apierrors.ErrValidation("unassigned", "unassigned must be true or false")
		}
		q.Unassigned = v
	}

	if raw := values.Get("top"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return q, apierrors.ErrValidation("top", "top must be a number")
		}
		q.Top = v
	}

	return q, nil
}

func bindExportQuery(values url.Values) (api.ExportQuery, error) {
	view, err := bindViewQuery(values)
	if err != nil {
		return api.ExportQuery{}, err
	}
	return api.ExportQuery{
		ViewQuery: view,
		Format:    strings.ToLower(values.Get("format")),
		View:      values.Get("view"),
	}, nil
}

func bindRenderQuery(values url.Values) (api.RenderQuery, error) {
	view, err := bindViewQuery(values)
	if err != nil {
		return api.RenderQuery{}, err
	}
	return api.RenderQuery{
		ViewQuery: view,
		AsOf:      values.Get("as_of"),
		FileName:  values.Get(FileNameQuery),
	}, nil
}
