package qr

import (
	"errors"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// QRGenerator renders invitation tokens as PNG QR codes. The token is the
// whole payload; the image can always be rendered again from it.
type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRGenerator(size int) *QRGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &QRGenerator{size: size, level: qrcode.Low}
}

func (q *QRGenerator) RenderToken(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("qr: empty payload")
	}
	return qrcode.Encode(payload, q.level, q.size)
}

// NewToken mints an invitation token. A random UUID leaves no realistic
// chance of collision, so callers do not retry.
func NewToken() string {
	return uuid.NewString()
}
