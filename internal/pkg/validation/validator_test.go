package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/jewelry-backend/internal/pkg/apperror"
)

type address struct {
	Line1   string `json:"line1" validate:"required"`
	Pincode string `json:"pincode" validate:"required,pincode"`
}

type checkoutRequest struct {
	ShippingAddress address `json:"shippingAddress" validate:"required"`
	PaymentMethod   string  `json:"paymentMethod" validate:"required,payment_method"`
	Quantity        int     `json:"quantity" validate:"min=1"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	ok := checkoutRequest{
		ShippingAddress: address{Line1: "12 MG Road", Pincode: "560001"},
		PaymentMethod:   "cod",
		Quantity:        1,
	}
	require.NoError(t, v.Struct(ok))

	bad := ok
	bad.PaymentMethod = "barter"
	bad.ShippingAddress.Pincode = "056001"
	err := Struct(bad, v)
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields, "paymentMethod")
	assert.Contains(t, appErr.Fields, "shippingAddress.pincode")
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	newCtx := func(body string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		return c
	}

	var req checkoutRequest
	err := BindJSON(newCtx(`{"shippingAddress":`), &req, v)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	req = checkoutRequest{}
	err = BindJSON(newCtx(`{"shippingAddress":{"line1":"x","pincode":"110001"},"paymentMethod":"online","quantity":0}`), &req, v)
	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "must be at least 1", appErr.Fields["quantity"])
}
