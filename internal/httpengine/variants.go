package httpengine

import (
	"encoding/json"
	"fmt"

	"github.com/slicingmelon/threadserver/internal/gserr"
	"github.com/slicingmelon/threadserver/internal/httpengine/params"
)

// The method shapes offered to user code, each adapted down to the raw
// MethodFunc the Registry stores.

// ParamsMethodFunc receives query/urlencoded-body parameters alongside the
// raw request and response.
type ParamsMethodFunc func(req *Request, resp *Response, p params.Values) error

// FileParamsMethodFunc additionally receives MIME file uploads.
type FileParamsMethodFunc func(req *Request, resp *Response, p params.Values, files params.Files) error

// JSONMethodFunc returns a JSON-serializable tree instead of writing
// resp.Body directly.
type JSONMethodFunc func(req *Request, resp *Response) (any, error)

// RPCMethodFunc is the pure JSON-RPC variant: POST only, body parsed as a
// JSON document before the method runs.
type RPCMethodFunc func(req *Request, resp *Response, body map[string]any) error

// WithParams adapts a ParamsMethodFunc into a MethodFunc by parsing the
// query string and, for POST/PUT urlencoded bodies, the body too.
func WithParams(fn ParamsMethodFunc) MethodFunc {
	return func(req *Request, resp *Response) error {
		p, _, err := decodeParams(req)
		if err != nil {
			return gserr.NewCoded(400, "%v", err)
		}
		return fn(req, resp, p)
	}
}

// WithFileParams adapts a FileParamsMethodFunc, additionally decoding
// multipart/form-data file uploads.
func WithFileParams(fn FileParamsMethodFunc) MethodFunc {
	return func(req *Request, resp *Response) error {
		p, files, err := decodeParams(req)
		if err != nil {
			return gserr.NewCoded(400, "%v", err)
		}
		return fn(req, resp, p, files)
	}
}

// WithJSON adapts a JSONMethodFunc: the returned tree is serialized to
// resp.Body as application/json; charset=utf-8.
func WithJSON(fn JSONMethodFunc) MethodFunc {
	return func(req *Request, resp *Response) error {
		tree, err := fn(req, resp)
		if err != nil {
			return err
		}
		body, err := json.Marshal(tree)
		if err != nil {
			return fmt.Errorf("httpengine: marshal json response: %w", err)
		}
		resp.Body = body
		resp.ContentType = "application/json; charset=utf-8"
		return nil
	}
}

// AsJSONRPC adapts an RPCMethodFunc: rejects non-POST with 405 and parses
// the body as a JSON document before calling user code.
func AsJSONRPC(fn RPCMethodFunc) MethodFunc {
	return func(req *Request, resp *Response) error {
		if req.Method != "POST" {
			return gserr.NewCoded(405, "method %s not allowed, JSON-RPC requires POST", req.Method)
		}
		var body map[string]any
		if len(req.Body) > 0 {
			if err := json.Unmarshal(req.Body, &body); err != nil {
				return gserr.NewCoded(400, "invalid JSON-RPC body: %v", err)
			}
		}
		return fn(req, resp, body)
	}
}

// decodeParams merges query-string params with urlencoded/multipart body
// params, the shared parameter-parsing path behind every params-aware
// method variant.
func decodeParams(req *Request) (params.Values, params.Files, error) {
	v := params.ParseQueryString(queryPart(req.RawURI))

	if req.Method != "POST" && req.Method != "PUT" {
		return v, nil, nil
	}

	switch {
	case hasPrefix(req.ContentType, "application/x-www-form-urlencoded"):
		v.Merge(params.ParseQueryString(string(req.Body)))
		return v, nil, nil
	case hasPrefix(req.ContentType, "multipart/form-data"):
		bodyVals, files, err := params.ParseMultipart(req.ContentType, req.Body)
		if err != nil {
			return nil, nil, err
		}
		v.Merge(bodyVals)
		return v, files, nil
	default:
		return v, nil, nil
	}
}

func queryPart(rawURI string) string {
	for i := 0; i < len(rawURI); i++ {
		if rawURI[i] == '?' {
			end := len(rawURI)
			for j := i + 1; j < len(rawURI); j++ {
				if rawURI[j] == '#' {
					end = j
					break
				}
			}
			return rawURI[i+1 : end]
		}
		if rawURI[i] == '#' {
			return ""
		}
	}
	return ""
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
