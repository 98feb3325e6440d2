package middleware

import (
	"bytes"
	"io"
	"net/http"

	apperrors "staybook/pkg/errors"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"
)

// SignatureVerifier checks a raw webhook payload against its signature header.
type SignatureVerifier func(payload []byte, signatureHeader string) error

// WebhookSignatureVerification rejects webhook calls whose signature does not
// match the raw body. The body is restored for the downstream handler.
func WebhookSignatureVerification(headerName string, verify SignatureVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(headerName)
			if signature == "" {
				rejectWebhook(w, log, r, "Missing "+headerName+" header", nil)
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectWebhook(w, log, r, "Failed to read request body", err)
				return
			}

			if err := verify(body, signature); err != nil {
				rejectWebhook(w, log, r, "Invalid webhook signature", err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, io.ErrUnexpectedEOF
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string, err error) {
	log.Warn("Webhook verification failed",
		"request_id", logger.RequestIDFromContext(r.Context()),
		"reason", reason,
		"error", err,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	_ = httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
}
