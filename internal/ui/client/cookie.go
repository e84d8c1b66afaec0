package client

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CookieName — cookie с зашифрованным идентификатором клиента.
const CookieName = "cc_client"

// CookieData — содержимое cookie клиента.
type CookieData struct {
	// ClientID — ключ контекста клиента в реестре.
	ClientID string `json:"cid"`
	// RefreshToken — для восстановления сессии после рестарта портала.
	RefreshToken string `json:"rt,omitempty"` //nolint:gosec // G117: хранится только в зашифрованном виде
	// IssuedAt — время выдачи (Unix).
	IssuedAt int64 `json:"iat"`
}

// Codec шифрует CookieData через AES-256-GCM.
type Codec struct {
	gcm    cipher.AEAD
	secure bool
	maxAge time.Duration
}

// NewCodec создаёт Codec. hexKey — 32 байта в hex; пустой ключ —
// случайный (cookie не переживают рестарт).
func NewCodec(hexKey string, secure bool, maxAge time.Duration) (*Codec, error) {
	var key []byte
	if hexKey == "" {
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("ошибка генерации ключа cookie: %w", err)
		}
	} else {
		var err error
		key, err = hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("ключ cookie не hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ключ cookie: ожидалось 32 байта, получено %d", len(key))
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &Codec{gcm: gcm, secure: secure, maxAge: maxAge}, nil
}

// Encode шифрует данные и возвращает base64url-строку.
func (c *Codec) Encode(data CookieData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации cookie: %w", err)
	}

	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(c.gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decode расшифровывает cookie. Просроченные данные отвергаются.
func (c *Codec) Decode(value string) (*CookieData, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := c.gcm.NonceSize()
	if len(raw) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	plaintext, err := c.gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования cookie: %w", err)
	}

	var data CookieData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации cookie: %w", err)
	}
	if data.ClientID == "" {
		return nil, errors.New("cookie без идентификатора клиента")
	}
	if c.maxAge > 0 && time.Since(time.Unix(data.IssuedAt, 0)) > c.maxAge {
		return nil, errors.New("cookie клиента просрочен")
	}

	return &data, nil
}

// FromRequest читает cookie клиента. Отсутствие cookie — nil, nil.
func (c *Codec) FromRequest(r *http.Request) (*CookieData, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}
	return c.Decode(cookie.Value)
}

// Write устанавливает cookie клиента в ответ.
func (c *Codec) Write(w http.ResponseWriter, data CookieData) error {
	data.IssuedAt = time.Now().Unix()
	value, err := c.Encode(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
