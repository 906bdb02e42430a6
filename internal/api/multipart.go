package api

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"sort"
)

// Multipart is a form upload with at most one file part (avatar, car image).
type Multipart struct {
	Fields    map[string]string
	FileField string
	FileName  string
	File      io.Reader
}

func (m *Multipart) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	if m.File != nil {
		if m.FileField == "" || m.FileName == "" {
			return nil, "", errors.New("multipart: file needs a field and a name")
		}
		part, err := w.CreateFormFile(m.FileField, m.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, m.File); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
