package helpers

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendlyMessage(t *testing.T) {
	assert.Contains(t, FriendlyMessage("1507", "broker text"), "Not enough cash")
	assert.Contains(t, FriendlyMessage("RC4010", ""), "mock server is not open")
	assert.Equal(t, "broker text", FriendlyMessage("9999", "broker text"))
	assert.Equal(t, "An error occurred. (code: 9999)", FriendlyMessage("9999", ""))
}

func TestExtractCode(t *testing.T) {
	assert.Equal(t, "8005", ExtractCode("[8005:Token이 유효하지 않습니다]"))
	assert.Equal(t, "RC4010", ExtractCode("모의투자 영업일이 아닙니다 [RC4010]"))
	assert.Equal(t, "", ExtractCode("종목코드 005930 오류"))
	assert.Equal(t, "RC4010", ExtractCode("[2000](RC4010:모의투자 영업일이 아닙니다)"))
	assert.Equal(t, "", ExtractCode("no code here"))
	assert.Equal(t, "", ExtractCode("매수가능수량 1000주 초과"))
	assert.Equal(t, "", ExtractCode("주문수량 [1000]주 초과"))
	assert.Equal(t, "1507", ExtractCode("[1507:주문가능금액 부족]"))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := pkgerrors.Wrap(NewUpstreamError(CodeTokenInvalid, "expired"), "GetAccount")
	assert.True(t, IsTokenError(err))
	assert.False(t, IsAuthError(err))

	var up *UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "8005", up.Code)
	assert.Equal(t, up.Message, PublicMessage(err))

	auth := pkgerrors.Wrap(NewAuthError("Login required", nil), "handler")
	assert.True(t, IsAuthError(auth))
	assert.Equal(t, "Login required", PublicMessage(auth))
}

func TestDashboardErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewTransportError("could not reach the broker", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not reach the broker: dial tcp: timeout", err.Error())
	assert.Equal(t, "could not reach the broker", PublicMessage(err))
}
