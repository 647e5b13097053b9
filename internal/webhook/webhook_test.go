package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSignPayload(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"type":"user.created","data":{}}`)

	signature := SignPayload(secret, payload)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if signature != expected {
		t.Errorf("expected signature %s, got %s", expected, signature)
	}
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"type":"user.updated"}`)
	valid := SignPayload("secret", body)

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"prefixed signature", "secret", valid, true},
		{"bare hex signature", "secret", strings.TrimPrefix(valid, "sha256="), true},
		{"wrong secret", "other", valid, false},
		{"empty signature", "secret", "", false},
		{"empty secret", "", valid, false},
		{"garbage", "secret", "sha256=deadbeef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyHMAC(tt.secret, body, tt.signature); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestVerifyMuxSignature_Valid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"type":"video.asset.ready"}`)
	header := SignMux("mux-secret", body, now)

	if err := VerifyMuxSignature(header, body, "mux-secret", now.Add(30*time.Second), DefaultTolerance); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyMuxSignature_AcceptsAnyMatchingV1(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"type":"video.asset.created"}`)
	good := SignMux("mux-secret", body, now)
	_, goodSig, _ := strings.Cut(good, ",v1=")
	header := "t=" + strconv.FormatInt(now.Unix(), 10) + ",v1=0000,v1=" + goodSig

	if err := VerifyMuxSignature(header, body, "mux-secret", now, DefaultTolerance); err != nil {
		t.Fatalf("expected rotated secret signature to verify, got %v", err)
	}
}

func TestVerifyMuxSignature_Failures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"type":"video.asset.errored"}`)
	valid := SignMux("mux-secret", body, now)

	tests := []struct {
		name   string
		header string
		body   []byte
		now    time.Time
		want   error
	}{
		{"empty header", "", body, now, ErrMissingSignature},
		{"no equals", "garbage", body, now, ErrMalformedHeader},
		{"missing timestamp", "v1=abc", body, now, ErrMalformedHeader},
		{"missing v1", "t=1700000000", body, now, ErrMalformedHeader},
		{"non numeric timestamp", "t=abc,v1=abc", body, now, ErrMalformedHeader},
		{"tampered body", valid, []byte(`{"type":"video.asset.deleted"}`), now, ErrNoMatch},
		{"expired", valid, body, now.Add(10 * time.Minute), ErrTimestampExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyMuxSignature(tt.header, tt.body, "mux-secret", tt.now, DefaultTolerance)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyMuxSignature_ZeroToleranceSkipsAgeCheck(t *testing.T) {
	signedAt := time.Unix(1_600_000_000, 0)
	body := []byte(`{}`)
	header := SignMux("s", body, signedAt)

	if err := VerifyMuxSignature(header, body, "s", time.Unix(1_700_000_000, 0), 0); err != nil {
		t.Fatalf("expected no age check with zero tolerance, got %v", err)
	}
}
