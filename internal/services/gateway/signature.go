// Package gateway terminates the inbound webhook surface: it authenticates
// deliveries, classifies them, acks fast, and hands real work to the
// dispatch pool
package gateway

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	perr "teambot/internal/platform/errors"
)

// chatSignatureWindow bounds how stale a signed chat request may be before
// it is treated as a replay
const chatSignatureWindow = 5 * time.Minute

// VerifyTrackerSignature checks the tracker's sha1 HMAC delivery header
// ("sha1=<hex>" over the raw body)
func VerifyTrackerSignature(secret, body []byte, header string) error {
	if header == "" {
		return perr.Unauthorizedf("missing delivery signature")
	}
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	want := "sha1=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(header)) {
		return perr.Unauthorizedf("delivery signature mismatch")
	}
	return nil
}

// VerifyChatSignature checks the chat platform's v0 signing scheme:
// sha256 HMAC over "v0:<timestamp>:<body>", with a freshness window on the
// timestamp header
func VerifyChatSignature(secret []byte, timestamp string, body []byte, header string, now time.Time) error {
	if header == "" || timestamp == "" {
		return perr.Unauthorizedf("missing request signature")
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return perr.Unauthorizedf("unparsable signature timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > chatSignatureWindow || age < -chatSignatureWindow {
		return perr.Unauthorizedf("request signature outside the freshness window")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	want := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(header)) {
		return perr.Unauthorizedf("request signature mismatch")
	}
	return nil
}
