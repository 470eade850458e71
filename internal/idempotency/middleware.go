package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"

	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
	"github.com/utafrali/EcommerceGo/catalog/pkg/httputil"
	"github.com/utafrali/EcommerceGo/catalog/pkg/logger"
)

// Header names.
const (
	KeyHeader      = "Idempotency-Key"
	ReplayedHeader = "Idempotent-Replayed"
)

const maxKeyLength = 255

// Middleware makes requests carrying an Idempotency-Key replay the first
// response instead of executing twice. Server errors release the key so the
// client may retry. When the store fails the request runs normally.
func Middleware(store Store, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(KeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			l := logger.FromContext(ctx)
			if l == slog.Default() && fallback != nil {
				l = fallback
			}

			if len(key) > maxKeyLength {
				httputil.WriteError(w, r, apperrors.InvalidInput("Idempotency-Key must be at most 255 characters"), l)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unprocessable("request body could not be read"), l)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintOf(r, body)

			existing, reserved, err := store.Reserve(ctx, key, fingerprint)
			if err != nil {
				l.WarnContext(ctx, "idempotency store unavailable, processing anyway",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !reserved {
				switch {
				case existing.Fingerprint != fingerprint:
					httputil.WriteError(w, r, apperrors.Unprocessable("Idempotency-Key was already used for a different request"), l)
				case !existing.Done:
					httputil.WriteError(w, r, apperrors.Conflict("a request with this Idempotency-Key is still in progress"), l)
				default:
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set(ReplayedHeader, "true")
					w.WriteHeader(existing.StatusCode)
					_, _ = w.Write(existing.Body)
				}
				return
			}

			release := func() {
				if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
					l.WarnContext(ctx, "failed to release idempotency key", slog.String("error", err.Error()))
				}
			}
			defer func() {
				if p := recover(); p != nil {
					release()
					panic(p)
				}
			}()

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				release()
				return
			}
			if err := store.Complete(ctx, key, Record{
				Fingerprint: fingerprint,
				StatusCode:  rec.status,
				Body:        rec.body.Bytes(),
			}); err != nil {
				l.WarnContext(ctx, "failed to store idempotent response", slog.String("error", err.Error()))
			}
		})
	}
}

// fingerprintOf hashes the method, path and body. Multipart bodies are hashed
// part by part so a retry encoded with a new boundary matches.
func fingerprintOf(r *http.Request, body []byte) string {
	h := sha256.New()
	io.WriteString(h, r.Method+" "+r.URL.Path+"\n") //nolint:errcheck

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" || params["boundary"] == "" || hashParts(h, body, params["boundary"]) != nil {
		h.Reset()
		io.WriteString(h, r.Method+" "+r.URL.Path+"\n") //nolint:errcheck
		h.Write(body)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashParts(h io.Writer, body []byte, boundary string) error {
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%q %q %q\n", part.FormName(), part.FileName(), part.Header.Get("Content-Type"))
		n, err := io.Copy(h, part)
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "\n%d\n", n)
	}
}

// recorder tees the response body so it can be replayed.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
