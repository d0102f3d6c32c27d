package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/dirkeeper/internal/cryptoutil"
)

// envelope is the encrypted body shape: a single opaque data field.
type envelope struct {
	Data *string `json:"data"`
}

// BodyDecoder reads request bodies that may arrive inside an encrypted envelope.
// With a nil Codec only plain JSON is accepted.
type BodyDecoder struct {
	Codec  cryptoutil.Codec
	Logger *slog.Logger
}

// Decode accepts plain JSON or, when a codec is configured, an envelope.
func (d BodyDecoder) Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return d.decode(w, r, dst, false)
}

// DecodeSensitive is Decode for credential-bearing bodies: once a codec is
// configured the envelope is mandatory.
func (d BodyDecoder) DecodeSensitive(w http.ResponseWriter, r *http.Request, dst any) bool {
	return d.decode(w, r, dst, true)
}

func (d BodyDecoder) decode(w http.ResponseWriter, r *http.Request, dst any, sensitive bool) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if d.Codec == nil {
		return decodeStrict(w, body, dst)
	}

	sealed, isEnvelope := parseEnvelope(body)
	if !isEnvelope {
		if sensitive {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_payload", Err: errors.New("encrypted payload is required")})
			return false
		}
		return decodeStrict(w, body, dst)
	}
	plain, err := d.Codec.Open(sealed)
	if err != nil {
		d.logger().WarnContext(r.Context(), "payload decryption failed", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_payload", Err: errors.New("payload could not be decrypted")})
		return false
	}
	return decodeStrict(w, plain, dst)
}

func (d BodyDecoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// parseEnvelope reports whether body is exactly {"data": "<string>"}.
func parseEnvelope(body []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil || env.Data == nil {
		return "", false
	}
	return *env.Data, true
}
