package receiver

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const (
	contentTypeProtobuf = "application/x-protobuf"
	contentTypeJSON     = "application/json"

	maxBodyBytes = 8 << 20
)

// HTTPHandler serves OTLP/HTTP log exports (POST /v1/logs) in either the
// protobuf or the JSON encoding.
type HTTPHandler struct {
	ingest
}

func NewHTTPHandler(rec Recorder, opts ...Option) *HTTPHandler {
	return &HTTPHandler{ingest: newIngest(rec, "otlp-http", opts)}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := contentTypeProtobuf
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			http.Error(w, "invalid content type", http.StatusUnsupportedMediaType)
			return
		}
		contentType = mt
	}
	if contentType != contentTypeProtobuf && contentType != contentTypeJSON {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			http.Error(w, "invalid gzip body", http.StatusBadRequest)
			return
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	req := &collogspb.ExportLogsServiceRequest{}
	if contentType == contentTypeJSON {
		err = protojson.Unmarshal(data, req)
	} else {
		err = proto.Unmarshal(data, req)
	}
	if err != nil {
		h.logger.Debug("rejecting malformed export", zap.String("content_type", contentType), zap.Error(err))
		http.Error(w, "malformed OTLP payload", http.StatusBadRequest)
		return
	}

	n := h.accept("http", req)
	h.logger.Debug("export", zap.String("remote", r.RemoteAddr), zap.Int("records", n))

	resp := &collogspb.ExportLogsServiceResponse{}
	var out []byte
	if contentType == contentTypeJSON {
		out, err = protojson.Marshal(resp)
	} else {
		out, err = proto.Marshal(resp)
	}
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
