package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/matzehuels/erdiagram/pkg/buildinfo"
	"github.com/matzehuels/erdiagram/pkg/errors"
	"github.com/matzehuels/erdiagram/pkg/pipeline"
	"github.com/matzehuels/erdiagram/pkg/render/dot"
	"github.com/matzehuels/erdiagram/pkg/schema"
)

// Response headers describing the rendered diagram.
const (
	headerEntities = "X-Diagram-Entities"
	headerEdges    = "X-Diagram-Edges"
	headerCache    = "X-Cache"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.renderOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Code:    string(errors.ErrCodeInvalidInput),
				Message: "schema exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	opts.Schema = body

	result, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := opts.Formats[0]
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set(headerEntities, strconv.Itoa(result.Stats.EntityCount))
	w.Header().Set(headerEdges, strconv.Itoa(result.Stats.EdgeCount))
	if result.CacheInfo.RenderHit {
		w.Header().Set(headerCache, "hit")
	} else {
		w.Header().Set(headerCache, "miss")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// renderOptions maps query parameters and headers onto pipeline options.
func (s *Server) renderOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{Logger: s.cfg.Logger}

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, err
	}
	opts.Formats = []string{format}

	opts.SchemaFormat = strings.ToLower(q.Get("schema"))
	if opts.SchemaFormat == "" {
		opts.SchemaFormat = schemaFormatFromContentType(r.Header.Get("Content-Type"))
	}

	var err error
	if opts.InferForeignKeys, err = boolParam(q.Get("infer"), "infer"); err != nil {
		return opts, err
	}
	if opts.Refresh, err = boolParam(q.Get("refresh"), "refresh"); err != nil {
		return opts, err
	}
	opts.Style = dot.Style{RankDir: q.Get("rankdir")}
	return opts, nil
}

func boolParam(v, name string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid %s: %q (must be true or false)", name, v)
	}
	return b, nil
}

// schemaFormatFromContentType maps a request media type to a schema format.
// Unknown or missing types fall back to YAML, which also accepts JSON.
func schemaFormatFromContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return schema.FormatYAML
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return schema.FormatJSON
	case mt == "application/toml" || mt == "text/toml":
		return schema.FormatTOML
	default:
		return schema.FormatYAML
	}
}

func contentType(format string) string {
	if format == pipeline.FormatJSON {
		return "application/json"
	}
	return dot.ContentType(format)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidSchema,
		errors.ErrCodeInvalidEntity, errors.ErrCodeDuplicateEntity:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnknownField, errors.ErrCodeUnregisteredEntity, errors.ErrCodeEntitySealed:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "id", RequestID(r.Context()), "error", err)
		if code == errors.ErrCodeInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
