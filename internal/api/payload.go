package api

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/storage"
)

const (
	maxBodySize  = storage.MaxImages*storage.MaxImageSize + 1<<20
	maxFormShare = 8 << 20
	imagesField  = "images"
	keptField    = "existingImages"
)

type fieldKind int

const (
	textField fieldKind = iota
	intField
	jsonField
	dateField
)

var (
	siteFields = map[string]fieldKind{
		"name":        textField,
		"address":     textField,
		"city":        textField,
		"state":       textField,
		"zipCode":     textField,
		"country":     textField,
		"description": textField,
		"coordinates": jsonField,
	}
	officeFields = withSite(map[string]fieldKind{
		"employees":   intField,
		"established": intField,
	})
	clientFields = withSite(map[string]fieldKind{
		"industry":         textField,
		"partnershipSince": intField,
	})
	visitFields = map[string]fieldKind{
		"officeId":  textField,
		"clientId":  textField,
		"visitDate": dateField,
		"purpose":   textField,
		"notes":     textField,
		"attendees": jsonField,
	}
)

func withSite(extra map[string]fieldKind) map[string]fieldKind {
	for name, kind := range siteFields {
		extra[name] = kind
	}
	return extra
}

// payload is a record write request: the present fields as JSON values,
// the uploaded files and the list of images to keep on update.
type payload struct {
	fields  map[string]json.RawMessage
	files   []*multipart.FileHeader
	kept    []string
	hasKept bool
}

// readPayload accepts multipart forms (the admin front end) and JSON bodies.
// Only the fields listed in accepted are taken from the request.
func readPayload(w http.ResponseWriter, r *http.Request, accepted map[string]fieldKind) (payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var (
		p   payload
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		p, err = readForm(r, accepted)
	} else {
		p, err = readJSON(r, accepted)
	}
	if err != nil {
		return payload{}, err
	}

	for name, kind := range accepted {
		raw, ok := p.fields[name]
		if !ok || kind != dateField {
			continue
		}
		if p.fields[name], err = normalizeDate(name, raw); err != nil {
			return payload{}, err
		}
	}
	return p, nil
}

func readForm(r *http.Request, accepted map[string]fieldKind) (payload, error) {
	if err := r.ParseMultipartForm(maxFormShare); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return payload{}, storage.ErrTooLarge
		}
		return payload{}, invalid("invalid multipart form: %v", err)
	}

	p := payload{fields: make(map[string]json.RawMessage), files: r.MultipartForm.File[imagesField]}
	for name, kind := range accepted {
		values := r.MultipartForm.Value[name]
		if len(values) == 0 {
			continue
		}
		value := values[0]

		switch kind {
		case textField, dateField:
			encoded, _ := json.Marshal(value)
			p.fields[name] = encoded
		case intField:
			if strings.TrimSpace(value) == "" {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return payload{}, invalid("%s must be an integer", name)
			}
			p.fields[name] = json.RawMessage(strconv.Itoa(n))
		case jsonField:
			if !json.Valid([]byte(value)) {
				return payload{}, invalid("%s must be valid JSON", name)
			}
			p.fields[name] = json.RawMessage(value)
		}
	}

	if values := r.MultipartForm.Value[keptField]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), &p.kept); err != nil {
			return payload{}, invalid("%s must be a JSON list", keptField)
		}
		p.hasKept = true
	}
	return p, nil
}

func readJSON(r *http.Request, accepted map[string]fieldKind) (payload, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return payload{}, invalid("invalid JSON body: %v", err)
	}

	p := payload{fields: make(map[string]json.RawMessage)}
	for name := range accepted {
		if raw, ok := body[name]; ok {
			p.fields[name] = raw
		}
	}
	if raw, ok := body[keptField]; ok {
		if err := json.Unmarshal(raw, &p.kept); err != nil {
			return payload{}, invalid("%s must be a JSON list", keptField)
		}
		p.hasKept = true
	}
	return p, nil
}

// apply decodes the present fields over dst, leaving the others untouched.
func (p payload) apply(dst any) error {
	encoded, err := json.Marshal(p.fields)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(encoded, dst); err != nil {
		return invalid("invalid field value: %v", err)
	}
	return nil
}

// keep returns the images of current that the request keeps. Without an
// explicit list all current images are kept.
func (p payload) keep(current []string) []string {
	if !p.hasKept {
		return append([]string{}, current...)
	}
	known := make(map[string]bool, len(current))
	for _, image := range current {
		known[image] = true
	}
	kept := []string{}
	for _, image := range p.kept {
		if known[image] {
			kept = append(kept, image)
		}
	}
	return kept
}

// normalizeDate accepts RFC 3339 timestamps and plain dates (2006-01-02, as
// sent by date inputs).
func normalizeDate(name string, raw json.RawMessage) (json.RawMessage, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, invalid("%s must be a date string", name)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return json.RawMessage(`"0001-01-01T00:00:00Z"`), nil
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		if parsed, err = time.Parse(time.DateOnly, value); err != nil {
			return nil, invalid("%s must be a date (YYYY-MM-DD)", name)
		}
	}
	encoded, _ := json.Marshal(parsed.UTC())
	return encoded, nil
}
