// Package middleware содержит HTTP middleware сервиса бонусных баллов.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/shopify-points-system/internal/audit"
)

// SignatureHeader — заголовок Shopify с подписью тела вебхука.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// HMACVerifier проверяет подпись тела вебхука общим секретом приложения.
type HMACVerifier struct {
	secret []byte
	logger *zap.Logger
	audit  *audit.Logger
}

// NewHMACVerifier создаёт middleware проверки подписи с указанным
// секретом.
func NewHMACVerifier(secret string, logger *zap.Logger, auditLog *audit.Logger) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		logger: logger,
		audit:  auditLog,
	}
}

// Verify сверяет подпись с HMAC-SHA256 от байтов тела запроса.
// Подпись считается именно от исходных байтов: повторная сериализация
// разобранного JSON меняет байты и ломает проверку. Некорректный
// заголовок означает непройденную проверку, а не ошибку.
func (v *HMACVerifier) Verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(provided, expected)
}

// Middleware читает тело запроса, проверяет подпись и передаёт запрос
// дальше с восстановленным телом. Запрос с неверной подписью
// отклоняется с кодом 401 и фиксируется в журнале.
func (v *HMACVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if !v.Verify(body, r.Header.Get(SignatureHeader)) {
			v.logger.Warn("webhook hmac verification failed",
				zap.String("path", r.URL.Path))
			v.audit.Append(fmt.Sprintf("HMAC verification failed at %s: Invalid HMAC signature for %s\n\n",
				time.Now().UTC().Format(time.RFC3339), r.URL.Path))
			http.Error(w, "Forbidden: Invalid HMAC signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
