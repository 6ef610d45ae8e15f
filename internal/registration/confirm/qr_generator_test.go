package confirm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conf-registration/internal/models"
)

func sampleRegistration() models.Registration {
	return models.Registration{
		RegistrationID:      "reg-1",
		ConferenceID:        "conf-1",
		FeeID:               "fee-1",
		AttendeeEmail:       "ada@example.com",
		PriceAtRegistration: 100.0,
		Currency:            "EUR",
	}
}

func TestGenerateConfirmationQR(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	png, err := gen.GenerateConfirmationQR(sampleRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG signature
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	gen := NewQRGenerator("test-secret")
	reg := sampleRegistration()

	encrypted, err := encryptAES([]byte(`payload`), gen.secret)
	require.NoError(t, err)
	assert.NotEqual(t, "payload", encrypted)

	// Full payload round trip through the scanner path
	data, err := encryptPayload(gen, reg)
	require.NoError(t, err)

	decoded, err := gen.DecryptConfirmation(data)
	require.NoError(t, err)
	assert.Equal(t, reg.RegistrationID, decoded.RegistrationID)
	assert.Equal(t, reg.FeeID, decoded.FeeID)
	assert.Equal(t, reg.AttendeeEmail, decoded.AttendeeEmail)
	assert.Equal(t, reg.PriceAtRegistration, decoded.PriceAtRegistration)
	assert.Equal(t, reg.Currency, decoded.Currency)
}

func TestDecryptWithWrongSecret(t *testing.T) {
	gen := NewQRGenerator("right-secret")
	other := NewQRGenerator("wrong-secret")

	data, err := encryptPayload(gen, sampleRegistration())
	require.NoError(t, err)

	// Wrong key yields garbage that cannot parse as the payload
	_, err = other.DecryptConfirmation(data)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	gen := NewQRGenerator("test-secret")

	_, err := gen.DecryptConfirmation("not base64 at all!!")
	assert.Error(t, err)

	// Valid base64 but shorter than one AES block
	_, err = gen.DecryptConfirmation("c2hvcnQ=")
	assert.Error(t, err)
}

// encryptPayload produces the string a scanner would read out of the QR,
// without rendering the PNG.
func encryptPayload(gen *QRGenerator, reg models.Registration) (string, error) {
	payload := confirmationPayload{
		RegistrationID: reg.RegistrationID,
		ConferenceID:   reg.ConferenceID,
		FeeID:          reg.FeeID,
		AttendeeEmail:  reg.AttendeeEmail,
		PriceGross:     reg.PriceAtRegistration,
		Currency:       reg.Currency,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return encryptAES(data, gen.secret)
}
