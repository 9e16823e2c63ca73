// Package upi builds the payment URIs encoded into fee QR codes.
package upi

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Scheme   = "upi://pay"
	Currency = "INR"
)

var (
	ErrMissingPayee  = errors.New("upi: payee address is required")
	ErrInvalidAmount = errors.New("upi: amount must be positive")
)

type Params struct {
	PayeeAddress string
	PayeeName    string
	Amount       decimal.Decimal
	Note         string
	Reference    string
}

// PaymentURI renders p as a upi://pay URI. The reference is appended to the
// note so it shows up in the payer's bank statement, and is also sent as tr.
func PaymentURI(p Params) (string, error) {
	if strings.TrimSpace(p.PayeeAddress) == "" {
		return "", ErrMissingPayee
	}

	if !p.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	note := p.Note
	if p.Reference != "" {
		note = NoteWithReference(note, p.Reference)
	}

	var b strings.Builder

	b.WriteString(Scheme)
	b.WriteString("?pa=")
	b.WriteString(escape(p.PayeeAddress))

	if p.PayeeName != "" {
		b.WriteString("&pn=")
		b.WriteString(escape(p.PayeeName))
	}

	b.WriteString("&am=")
	b.WriteString(p.Amount.StringFixed(2))
	b.WriteString("&cu=")
	b.WriteString(Currency)

	if note != "" {
		b.WriteString("&tn=")
		b.WriteString(escape(note))
	}

	if p.Reference != "" {
		b.WriteString("&tr=")
		b.WriteString(escape(p.Reference))
	}

	return b.String(), nil
}

// PaymentNote is the human-readable transaction note, e.g.
// "Fee Payment - Asha Rao (ADM001) - Term 1".
func PaymentNote(studentName, seed, feeComponent string) string {
	parts := []string{"Fee Payment"}

	name := strings.TrimSpace(studentName)
	seed = strings.TrimSpace(seed)

	switch {
	case name != "" && seed != "":
		parts = append(parts, name+" ("+seed+")")
	case name != "":
		parts = append(parts, name)
	case seed != "":
		parts = append(parts, seed)
	}

	if fc := strings.TrimSpace(feeComponent); fc != "" {
		parts = append(parts, fc)
	}

	return strings.Join(parts, " - ")
}

func NoteWithReference(note, reference string) string {
	if note == "" {
		return "Ref: " + reference
	}

	return note + " - Ref: " + reference
}

// escape percent-encodes s the way payment apps expect, with %20 for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
