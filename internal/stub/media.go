package stub

import (
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
)

const maxUpload = 5 << 20

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// readMultipart returns the plain form fields and the base name of the
// uploaded file, if any. File contents are discarded: images are not stored.
func readMultipart(r *http.Request, fileField string) (map[string]string, string, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, "", errors.New("multipart form parse error")
	}
	fields := map[string]string{}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	f, hdr, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return fields, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	if _, err := io.Copy(io.Discard, f); err != nil {
		return nil, "", err
	}
	return fields, path.Base(hdr.Filename), nil
}

func mediaURL(r *http.Request, dir, name string) string {
	return "http://" + r.Host + "/media/" + dir + "/" + name
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
