package upi_test

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/feeflow/internal/upi"
)

func TestPaymentURI(t *testing.T) {
	got, err := upi.PaymentURI(upi.Params{
		PayeeAddress: "greenfield@okaxis",
		PayeeName:    "Greenfield School",
		Amount:       decimal.NewFromInt(300),
		Note:         "Fee Payment - Asha Rao (ADM001) - Term 1",
		Reference:    "ADMK7P2Q",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"upi://pay?pa=greenfield%40okaxis&pn=Greenfield%20School&am=300.00&cu=INR"+
			"&tn=Fee%20Payment%20-%20Asha%20Rao%20%28ADM001%29%20-%20Term%201%20-%20Ref%3A%20ADMK7P2Q&tr=ADMK7P2Q",
		got,
	)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "greenfield@okaxis", u.Query().Get("pa"))
	assert.Equal(t, "Fee Payment - Asha Rao (ADM001) - Term 1 - Ref: ADMK7P2Q", u.Query().Get("tn"))
}

func TestPaymentURI_Minimal(t *testing.T) {
	got, err := upi.PaymentURI(upi.Params{PayeeAddress: "a@b", Amount: decimal.RequireFromString("12.5")})
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?pa=a%40b&am=12.50&cu=INR", got)
}

func TestPaymentURI_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		params  upi.Params
		wantErr error
	}{
		{name: "NoPayee", params: upi.Params{Amount: decimal.NewFromInt(1)}, wantErr: upi.ErrMissingPayee},
		{name: "ZeroAmount", params: upi.Params{PayeeAddress: "a@b"}, wantErr: upi.ErrInvalidAmount},
		{name: "NegativeAmount", params: upi.Params{PayeeAddress: "a@b", Amount: decimal.NewFromInt(-5)}, wantErr: upi.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := upi.PaymentURI(tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPaymentNote(t *testing.T) {
	assert.Equal(t, "Fee Payment - Asha Rao (ADM001) - Term 1", upi.PaymentNote("Asha Rao", "ADM001", "Term 1"))
	assert.Equal(t, "Fee Payment - Asha Rao", upi.PaymentNote(" Asha Rao ", "", ""))
	assert.Equal(t, "Fee Payment - ADM001 - Bus", upi.PaymentNote("", "ADM001", "Bus"))
	assert.Equal(t, "Fee Payment", upi.PaymentNote("", "", ""))
}

func TestNoteWithReference(t *testing.T) {
	assert.Equal(t, "Ref: ABC", upi.NoteWithReference("", "ABC"))
	assert.Equal(t, "Fees - Ref: ABC", upi.NoteWithReference("Fees", "ABC"))
}
