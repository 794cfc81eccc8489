// Package grpcweb serves browsers over HTTP/1.1. RPCs are forwarded to the
// gRPC server either framed as gRPC-Web or as plain JSON; attachment
// downloads and the xlsx export are served directly.
package grpcweb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"dental-clinic-admin/internal/api"
	"dental-clinic-admin/internal/attachment"
	"dental-clinic-admin/internal/clinic"
	"dental-clinic-admin/internal/export"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/model"
)

// maxBody admits one full message plus its grpc-web frame header.
const maxBody = api.MaxMessageSize + 5

// Bridge translates browser requests into calls on the gRPC server.
type Bridge struct {
	conn   grpc.ClientConnInterface
	app    *clinic.App
	secret string
	log    *zap.Logger
}

// New dials the gRPC server at addr (e.g. "localhost:50051").
func New(addr string, app *clinic.App, secret string, log *zap.Logger) (*Bridge, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		api.DialOption(),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	return NewWithConn(conn, app, secret, log), nil
}

func NewWithConn(conn grpc.ClientConnInterface, app *clinic.App, secret string, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{conn: conn, app: app, secret: secret, log: log}
}

func (b *Bridge) Close() {
	if c, ok := b.conn.(io.Closer); ok {
		c.Close()
	}
}

func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+api.ServiceName+"/{method}", b.forward)
	mux.HandleFunc("GET /attachments/{id}/{index}", b.attachment)
	mux.HandleFunc("GET /export/appointments.xlsx", b.export)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, X-Grpc-Web, X-User-Agent, Authorization, If-None-Match, x-grpc-web")
		w.Header().Set("Access-Control-Expose-Headers",
			"Grpc-Status, Grpc-Message, Grpc-Status-Details-Bin, grpc-status, grpc-message, ETag")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	web := strings.HasPrefix(ct, "application/grpc-web")
	if !web && ct != "application/json" {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			b.fail(w, web, status.New(codes.ResourceExhausted, "request too large"))
			return
		}
		b.fail(w, web, status.New(codes.Internal, "read body failed"))
		return
	}
	payload := body
	if web {
		// grpc-web frame: 1-byte flag + 4-byte big-endian length + message
		if len(body) < 5 {
			b.fail(w, web, status.New(codes.InvalidArgument, "body too short"))
			return
		}
		n := binary.BigEndian.Uint32(body[1:5])
		if int(n)+5 > len(body) {
			b.fail(w, web, status.New(codes.InvalidArgument, "incomplete frame"))
			return
		}
		payload = body[5 : 5+n]
	}

	md := metadata.MD{}
	if vals := r.Header.Values("Authorization"); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	method := api.FullMethod(r.PathValue("method"))
	resp := &rawMsg{}
	err = b.conn.Invoke(ctx, method, &rawMsg{data: payload}, resp, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st, _ := status.FromError(err)
		b.log.Debug("rpc failed", zap.String("method", method), zap.String("code", st.Code().String()))
		b.fail(w, web, st)
		return
	}

	if web {
		writeSuccess(w, resp.data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if len(resp.data) == 0 {
		resp.data = []byte("{}")
	}
	w.Write(resp.data)
}

func (b *Bridge) fail(w http.ResponseWriter, web bool, st *status.Status) {
	if web {
		writeError(w, st.Code(), st.Message())
		return
	}
	writeJSONError(w, st)
}

// rawMsg wraps already-encoded JSON bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through untouched. It carries the JSON codec's
// name so the server decodes with it.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	return v.(*rawMsg).data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return api.CodecName }

func writeError(w http.ResponseWriter, code codes.Code, msg string) {
	w.Header().Set("Content-Type", "application/grpc-web+json")
	w.WriteHeader(http.StatusOK)
	trailer := fmt.Sprintf("grpc-status:%d\r\ngrpc-message:%s\r\n", code, url.PathEscape(msg))
	w.Write(frame(0x80, []byte(trailer)))
}

func writeSuccess(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/grpc-web+json")
	w.WriteHeader(http.StatusOK)
	w.Write(frame(0x00, data))
	w.Write(frame(0x80, []byte("grpc-status:0\r\n")))
}

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

type jsonError struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Fields  []fieldViolation `json:"fields,omitempty"`
}

type fieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

func writeJSONError(w http.ResponseWriter, st *status.Status) {
	out := jsonError{Code: st.Code().String(), Message: st.Message()}
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			out.Fields = append(out.Fields, fieldViolation{Field: v.GetField(), Description: v.GetDescription()})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(st.Code()))
	json.NewEncoder(w).Encode(out)
}

func httpStatus(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return 499
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// caller authenticates a plain HTTP request the same way Auth does for RPCs.
func (b *Bridge) caller(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	s, err := middleware.Verify(r.Header.Get("Authorization"), b.secret, b.app.Session())
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return nil, false
	}
	return s, true
}

// attachment streams one decoded attachment. The ETag is its content id.
func (b *Bridge) attachment(w http.ResponseWriter, r *http.Request) {
	s, ok := b.caller(w, r)
	if !ok {
		return
	}
	a, err := b.app.Appointments().GetByID(r.PathValue("id"))
	if err != nil || (s.Role != model.RoleAdmin && s.PatientID != a.PatientID) {
		http.NotFound(w, r)
		return
	}
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 || i >= len(a.Attachments) {
		http.NotFound(w, r)
		return
	}
	att := a.Attachments[i]

	data, err := attachment.Decode(att)
	if err != nil {
		b.log.Warn("stored attachment undecodable", zap.String("appointment_id", a.ID), zap.Int("index", i))
		http.Error(w, "attachment unreadable", http.StatusUnprocessableEntity)
		return
	}
	id, err := attachment.ContentID(att)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	etag := `"` + id + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	ct := att.Type
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": att.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (b *Bridge) export(w http.ResponseWriter, r *http.Request) {
	s, ok := b.caller(w, r)
	if !ok {
		return
	}
	if s.Role != model.RoleAdmin {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}
	f, err := export.Workbook(b.app.Appointments().List(), b.app.Patients().List(), b.app.Location())
	if err != nil {
		b.log.Error("export failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.xlsx"`)
	if _, err := f.WriteTo(w); err != nil {
		b.log.Warn("export interrupted", zap.Error(err))
	}
}
