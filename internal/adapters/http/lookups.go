package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

const maxJSONBodyBytes = 64 << 10

type registrationRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

func (rt *Router) lookupRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req registrationRequest
	if err := rt.decodeJSON(r, "RegistrationRequest", &req); err != nil {
		writeError(w, r, err)
		return
	}

	start := time.Now()
	outcome, err := rt.lookups.LookupRegistration(r.Context(), req.RegistrationNumber)
	rt.recordLookup("manual", outcome, err, time.Since(start))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) lookupImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Image is too large.", Kind: string(domain.KindValidation)})
			return
		}
		writeError(w, r, domain.NewError(domain.KindValidation, "multipart field 'image' is required", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.NewError(domain.KindValidation, "Could not read the uploaded image.", err))
		return
	}
	if len(data) == 0 {
		writeError(w, r, domain.NewError(domain.KindValidation, "Uploaded image is empty.", errors.New("empty image")))
		return
	}

	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	start := time.Now()
	outcome, err := rt.lookups.LookupImage(r.Context(), domain.Image{Data: data, MimeType: mimeType})
	rt.recordLookup("image", outcome, err, time.Since(start))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// decodeJSON validates the body against an OpenAPI component schema before
// decoding it into out.
func (rt *Router) decodeJSON(r *http.Request, schemaName string, out any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err != nil {
		return domain.NewError(domain.KindValidation, "Invalid request: unreadable body", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.NewError(domain.KindValidation, "Invalid request: malformed JSON", err)
	}
	if err := rt.spec.validate(schemaName, generic); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewError(domain.KindValidation, "Invalid request: malformed JSON", err)
	}
	return nil
}

func (rt *Router) recordLookup(mode string, outcome *domain.LookupOutcome, err error, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	if err != nil {
		rt.metrics.RecordLookup(rt.service, mode, "", string(domain.KindOf(err)), nil, duration)
		return
	}
	rt.metrics.RecordLookup(rt.service, mode, string(outcome.Source), "", outcome.Confidence, duration)
}
