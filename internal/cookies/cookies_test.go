package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)

	// Token values contain dots themselves; the signature must still split
	// off cleanly.
	value := "eyJhbGciOiJkaXIifQ..aXY.Y3Q.dGFn"
	opened, err := codec.Open(codec.Seal(value))
	require.NoError(t, err)
	assert.Equal(t, value, opened)
}

func TestOpen_Tampered(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)
	sealed := codec.Seal("some-token")

	_, err := codec.Open("x" + sealed)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = codec.Open("no-signature-at-all")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = codec.Open("")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestOpen_WrongSecret(t *testing.T) {
	sealed := NewCodec([]byte("secret-one"), false).Seal("some-token")

	_, err := NewCodec([]byte("secret-two"), false).Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSetAuthToken_Attributes(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), true)

	rec := httptest.NewRecorder()
	codec.SetAuthToken(rec, "some-token", 2*time.Hour)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, AuthTokenName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int((2 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestSetCSRFToken_ReadableByScript(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)

	rec := httptest.NewRecorder()
	codec.SetCSRFToken(rec, "raw.signature", time.Hour)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, CSRFTokenName, cookie.Name)
	assert.False(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	// The CSRF value carries its own HMAC; the codec must not double-wrap it.
	assert.Equal(t, "raw.signature", cookie.Value)
}

func TestAuthToken_RoundTripThroughRequest(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)

	rec := httptest.NewRecorder()
	codec.SetAuthToken(rec, "some-token", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	token, err := codec.AuthToken(req)
	require.NoError(t, err)
	assert.Equal(t, "some-token", token)
}

func TestAuthToken_Missing(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := codec.AuthToken(req)
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestClearAuthToken(t *testing.T) {
	codec := NewCodec([]byte("cookie-secret"), false)

	rec := httptest.NewRecorder()
	codec.ClearAuthToken(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthTokenName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
