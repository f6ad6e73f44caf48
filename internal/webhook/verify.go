// Package webhook receives signed identity-provider events and keeps the
// local profile and role records in sync.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampTolerance bounds how far a delivery timestamp may drift from
// current time before the event is treated as a replay.
const timestampTolerance = 5 * time.Minute

// VerifySignature checks a provider-signed delivery. The signed string is
// exactly "{id}.{timestamp}.{body}", MACed with HMAC-SHA256 under the
// shared secret (base64, with the "whsec_" prefix stripped). The signature
// header carries space-separated "v1,<base64>" candidates; any exact match
// accepts.
func VerifySignature(body []byte, id, timestamp, sigHeader, secret string, now time.Time) error {
	if id == "" || timestamp == "" || sigHeader == "" {
		return fmt.Errorf("missing signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp: %w", err)
	}
	drift := now.Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > timestampTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(sigHeader) {
		// Candidate format: "v1,<base64>".
		_, value, found := strings.Cut(candidate, ",")
		if !found {
			continue
		}
		if hmac.Equal([]byte(value), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}
