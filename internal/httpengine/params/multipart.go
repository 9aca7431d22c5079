package params

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
)

// FileEntry is one uploaded file extracted from a multipart/form-data body:
// parts with a filename parameter become file entries in a parallel
// file-map instead of an ordinary string parameter.
type FileEntry struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Files maps a form field name to every uploaded file under that name.
type Files map[string][]FileEntry

// ParseMultipart decodes a multipart/form-data body: parts with a filename
// parameter or a non-empty content type become file entries; everything
// else becomes an ordinary string parameter. Each part's
// content-transfer-encoding is honored for base64/quoted-printable,
// otherwise the part body is copied verbatim.
func ParseMultipart(contentType string, body []byte) (Values, Files, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, nil, fmt.Errorf("params: parse multipart content-type: %w", err)
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, nil, fmt.Errorf("params: multipart/form-data missing boundary")
	}

	values := Values{}
	files := Files{}

	r := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("params: read multipart part: %w", err)
		}

		data, err := decodeTransferEncoding(part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("params: decode part %q: %w", part.FormName(), err)
		}

		filename := part.FileName()
		partContentType := part.Header.Get("Content-Type")
		if filename != "" || partContentType != "" {
			files[part.FormName()] = append(files[part.FormName()], FileEntry{
				Filename:    filename,
				ContentType: partContentType,
				Data:        data,
			})
			continue
		}
		values.add(part.FormName(), string(data))
	}

	return values, files, nil
}

func decodeTransferEncoding(cte string, r io.Reader) ([]byte, error) {
	switch cte {
	case "base64":
		return io.ReadAll(base64.NewDecoder(base64.StdEncoding, r))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	default:
		return io.ReadAll(r)
	}
}
