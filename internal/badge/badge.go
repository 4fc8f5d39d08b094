// Package badge derives the scannable check-in token for a finalized
// submission and resolves a scanned token back to its reference. The
// token is a URL embedding the reference plus an HMAC-SHA256 signature,
// so it is stable per reference (reprints produce the identical code)
// and tampering is detectable offline.
package badge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"github.com/bookfairhq/bookfair-backend/internal/model"
)

// ErrInvalidFormat is returned for scans that are not badge URLs at
// all: garbled reads, foreign QR codes, plain text.
var ErrInvalidFormat = errors.New("scanned text is not a valid badge code")

// ErrBadSignature is returned when the badge URL parses but its
// signature does not match the reference.
var ErrBadSignature = errors.New("badge signature mismatch")

// Issuer signs and verifies badge URLs.
type Issuer struct {
	baseURL string
	secret  []byte
}

// NewIssuer constructs an Issuer. baseURL is the check-in page the QR
// code points at, e.g. https://fair.example.com/checkin.
func NewIssuer(baseURL, secret string) *Issuer {
	return &Issuer{baseURL: baseURL, secret: []byte(secret)}
}

// Encode produces the badge URL for a finalized submission. Same
// reference, same URL.
func (i *Issuer) Encode(sub *model.Submission) string {
	q := url.Values{}
	q.Set("ref", sub.Reference)
	q.Set("sig", i.sign(sub.Reference))
	return i.baseURL + "?" + q.Encode()
}

// Decode extracts and verifies the reference from scanned text.
func (i *Issuer) Decode(scanned string) (string, error) {
	u, err := url.Parse(scanned)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidFormat
	}
	ref := u.Query().Get("ref")
	sig := u.Query().Get("sig")
	if ref == "" || sig == "" {
		return "", ErrInvalidFormat
	}

	want, err := hex.DecodeString(sig)
	if err != nil {
		return "", fmt.Errorf("%w: signature is not hex", ErrInvalidFormat)
	}
	got, _ := hex.DecodeString(i.sign(ref))
	if !hmac.Equal(want, got) {
		return "", ErrBadSignature
	}
	return ref, nil
}

func (i *Issuer) sign(ref string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(ref))
	return hex.EncodeToString(mac.Sum(nil))
}
