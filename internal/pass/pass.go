package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"ms-campsite/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrMalformedPass = errors.New("malformed check-in pass")

// Generator produces the encrypted QR check-in pass handed to a confirmed
// stay. The gate scanner decodes it with the same shared secret.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// GeneratePass renders the stay's pass as a QR PNG.
func (g *Generator) GeneratePass(stay models.Stay) ([]byte, error) {
	payload := models.CheckInPass{
		StayID:             stay.ID,
		ResponsibleContact: stay.ResponsibleContact,
		PlotIDs:            stay.PlotIDs,
		ScheduledArrival:   stay.ScheduledArrival,
		ScheduledDeparture: stay.ScheduledDeparture,
		IssuedAt:           time.Now().UTC(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecodePayload is the scanner-side inverse of the encrypted QR content.
func (g *Generator) DecodePayload(encrypted string) (*models.CheckInPass, error) {
	data, err := decryptAES(encrypted, g.secret)
	if err != nil {
		return nil, err
	}
	var payload models.CheckInPass
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrMalformedPass
	}
	return &payload, nil
}

// EncryptPayload exposes the raw encrypted string for callers that embed the
// pass somewhere other than a QR image.
func (g *Generator) EncryptPayload(payload models.CheckInPass) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return encryptAES(data, g.secret)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedPass
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, ErrMalformedPass
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
