package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// HMACAuth holds one venue's API credentials.
type HMACAuth struct {
	Key    string // API key
	Secret string // API secret, raw bytes
}

// GateHeaders returns the authentication headers for a Gate.io v4 API
// request. The signature is HMAC-SHA512(secret, method\npath\nquery\n
// sha512(body)\ntimestamp) in hex.
//
// Returned header keys:
//   - KEY
//   - Timestamp
//   - SIGN
func (h *HMACAuth) GateHeaders(method, path, query, body string) map[string]string {
	return h.GateHeadersAt(method, path, query, body, time.Now().Unix())
}

// GateHeadersAt is GateHeaders with a caller-supplied Unix timestamp,
// useful for deterministic testing.
func (h *HMACAuth) GateHeadersAt(method, path, query, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	bodyHash := sha512.Sum512([]byte(body))
	message := method + "\n" + path + "\n" + query + "\n" + hex.EncodeToString(bodyHash[:]) + "\n" + ts
	sig := hmacSHA512Hex([]byte(h.Secret), message)

	return map[string]string{
		"KEY":       h.Key,
		"Timestamp": ts,
		"SIGN":      sig,
	}
}

// MEXCSignature signs a Binance-style query string with HMAC-SHA256 and
// returns the hex signature to append as the signature parameter.
func (h *HMACAuth) MEXCSignature(query string) string {
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// Configured reports whether both credential halves are present.
func (h *HMACAuth) Configured() bool {
	return h != nil && h.Key != "" && h.Secret != ""
}

func hmacSHA512Hex(key []byte, message string) string {
	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (h *HMACAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("HMACAuth{key=%s, secret=%s}", redact(h.Key), redact(h.Secret))
}
