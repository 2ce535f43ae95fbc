package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mkrylova/shopcore/internal/domain"
)

// HeaderIdempotencyKey — заголовок с клиентским ключом идемпотентности.
const HeaderIdempotencyKey = "Idempotency-Key"

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyMiddleware делает мутирующие запросы повторяемыми: первый
// запрос с ключом обрабатывается и его ответ сохраняется, повторы с тем же
// ключом и телом получают сохранённый ответ. Тот же ключ с другим телом
// отклоняется.
func IdempotencyMiddleware(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "idempotency-middleware")
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if repo == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(r.Method, r.URL.Path, body)

			record, err := repo.CreateProcessing(key, hash, time.Now().UTC().Add(ttl))
			switch {
			case err == nil:
				// Первый запрос с этим ключом.
			case errors.Is(err, domain.ErrIdempotencyHashMismatch):
				writeError(w, http.StatusUnprocessableEntity, "idempotency_key_reused",
					"idempotency key is already used with a different request")
				return
			case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
				if record.Status == domain.IdempotencyStatusProcessing {
					writeError(w, http.StatusConflict, "request_in_progress",
						"request with this idempotency key is still being processed")
					return
				}
				replayResponse(w, record)
				return
			default:
				logger.WithError(err).WithField("key", key).Error("idempotency lookup failed")
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			if recorder.status >= http.StatusInternalServerError {
				if markErr := repo.MarkFailed(key, recorder.body.Bytes(), recorder.status); markErr != nil {
					logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key failed")
				}
				return
			}
			if markErr := repo.MarkDone(key, recorder.body.Bytes(), recorder.status); markErr != nil {
				logger.WithError(markErr).WithField("key", key).Warn("failed to mark idempotency key done")
			}
		})
	}
}

func requestHash(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{0})
	sum.Write([]byte(path))
	sum.Write([]byte{0})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

func replayResponse(w http.ResponseWriter, record domain.IdempotencyRecord) {
	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

// responseRecorder дублирует ответ в буфер для сохранения в idempotency store.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
