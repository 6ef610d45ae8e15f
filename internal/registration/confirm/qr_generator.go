package confirm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"conf-registration/internal/models"
)

// QRGenerator renders an encrypted confirmation QR for a registration.
// Check-in scanners holding the shared secret can decode it offline.
type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

type confirmationPayload struct {
	RegistrationID string  `json:"registration_id"`
	ConferenceID   string  `json:"conference_id"`
	FeeID          string  `json:"fee_id"`
	AttendeeEmail  string  `json:"attendee_email"`
	PriceGross     float64 `json:"price_gross"`
	Currency       string  `json:"currency"`
}

func (q *QRGenerator) GenerateConfirmationQR(reg models.Registration) ([]byte, error) {
	data, err := json.Marshal(confirmationPayload{
		RegistrationID: reg.RegistrationID,
		ConferenceID:   reg.ConferenceID,
		FeeID:          reg.FeeID,
		AttendeeEmail:  reg.AttendeeEmail,
		PriceGross:     reg.PriceAtRegistration,
		Currency:       reg.Currency,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecryptConfirmation recovers the registration payload from the
// encrypted string carried by a scanned QR.
func (q *QRGenerator) DecryptConfirmation(encoded string) (*models.Registration, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	plain, err := decryptAES(raw, q.secret)
	if err != nil {
		return nil, err
	}
	var payload confirmationPayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, err
	}
	return &models.Registration{
		RegistrationID:      payload.RegistrationID,
		ConferenceID:        payload.ConferenceID,
		FeeID:               payload.FeeID,
		AttendeeEmail:       payload.AttendeeEmail,
		PriceAtRegistration: payload.PriceGross,
		Currency:            payload.Currency,
	}, nil
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

func decryptAES(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, io.ErrUnexpectedEOF
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
