package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uma-arai/hotelgen-batch/internal/model"
)

func newTestEncoder(buf *bytes.Buffer) *Encoder {
	return NewEncoder(log.New(buf))
}

func TestLayouts(t *testing.T) {
	tests := []struct {
		layout  Layout
		offsets map[string]int
	}{
		{
			layout: CustomerLayout,
			offsets: map[string]int{
				"first_name": 0, "last_name": 32, "street": 64, "city": 128, "state": 152,
				"zip": 154, "phone": 164, "email": 180, "archetype": 244, "padding": 248,
			},
		},
		{
			layout: PropertyLayout,
			offsets: map[string]int{
				"type": 0, "name": 4, "street": 68, "city": 132, "state": 156, "zip": 158,
				"phone": 168, "email": 184, "website": 248, "padding": 312,
			},
		},
		{
			layout: TransactionLayout,
			offsets: map[string]int{
				"customer_id": 0, "property_id": 4, "timestamp": 8, "amount": 16, "padding": 24,
			},
		},
		{
			layout: TransactionLineLayout,
			offsets: map[string]int{
				"line_number": 0, "transaction_id": 2, "description": 6, "amount": 70, "padding": 78,
			},
		},
		{
			layout: TransactionChargeLayout,
			offsets: map[string]int{
				"transaction_id": 0, "timestamp": 4, "amount": 12, "payment_method": 20, "result": 52, "padding": 53,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.layout.Name, func(t *testing.T) {
			last := tt.layout.Fields[len(tt.layout.Fields)-1]
			assert.Equal(t, tt.layout.Size, last.End(), "fields must fill the record exactly")
			assert.Zero(t, tt.layout.Size&(tt.layout.Size-1), "record size must be a power of two")
			for name, offset := range tt.offsets {
				assert.Equal(t, offset, tt.layout.Field(name).Offset, name)
			}
			assert.Len(t, tt.layout.Fields, len(tt.offsets))
		})
	}
}

func TestPutText(t *testing.T) {
	tests := []struct {
		name          string
		budget        int
		in            string
		want          string
		wantTruncated bool
	}{
		{name: "収まる", budget: 8, in: "abc", want: "abc"},
		{name: "ちょうど収まる", budget: 3, in: "abc", want: "abc"},
		{name: "ASCIIの切り詰め", budget: 4, in: "abcdef", want: "abcd", wantTruncated: true},
		{name: "マルチバイト文字の途中で切らない", budget: 4, in: "aé日本", want: "aé", wantTruncated: true},
		{name: "先頭の文字も入らない", budget: 2, in: "日本", want: "", wantTruncated: true},
		{name: "空文字", budget: 4, in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, tt.budget)
			truncated := putText(dst, tt.in)
			assert.Equal(t, tt.wantTruncated, truncated)

			got := getText(dst)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestCustomerRoundTrip(t *testing.T) {
	var logs bytes.Buffer
	enc := newTestEncoder(&logs)

	c := model.Customer{
		FirstName: "José",
		LastName:  "Müller",
		Street:    "1234 Elm Street",
		City:      "Minneapolis",
		State:     "MN",
		Zip:       "55401",
		Phone:     "612-555-0134",
		Email:     "jose.muller@example.com",
		Archetype: model.ArchetypeBusiness,
	}

	rec := enc.EncodeCustomer(c)
	require.Len(t, rec, CustomerSize)

	got, err := DecodeCustomer(rec)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, rec, enc.EncodeCustomer(got))
	assert.Zero(t, enc.Overflows())
	assert.Empty(t, logs.String())
}

func TestPropertyRoundTrip(t *testing.T) {
	enc := newTestEncoder(&bytes.Buffer{})

	p := model.Property{
		Type:    model.PropertyTypeResort,
		Name:    "Golden Lantern Resort",
		Street:  "1 Ocean Drive",
		City:    "Key West",
		State:   "FL",
		Zip:     "33040",
		Phone:   "305-555-0100",
		Email:   "stay@goldenlantern.com",
		Website: "https://www.goldenlantern.com",
	}

	rec := enc.EncodeProperty(p)
	require.Len(t, rec, PropertySize)
	assert.Equal(t, byte(3), rec[0])

	got, err := DecodeProperty(rec)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, rec, enc.EncodeProperty(got))
}

func TestTransactionRoundTrip(t *testing.T) {
	enc := newTestEncoder(&bytes.Buffer{})
	ts := model.NewTimestamp(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))

	txn := model.Transaction{
		CustomerID: 42,
		PropertyID: 7,
		Timestamp:  ts,
		Total:      model.Dollars(259.98),
	}
	rec := enc.EncodeTransaction(txn)
	require.Len(t, rec, TransactionSize)

	got, err := DecodeTransaction(rec)
	require.NoError(t, err)
	assert.Equal(t, txn, got)

	line := model.TransactionLine{LineNumber: 2, Description: "Resort Fee", UnitAmount: model.Dollars(35), Quantity: 3}
	lrec := enc.EncodeLine(99, line)
	require.Len(t, lrec, TransactionLineSize)

	id, gotLine, err := DecodeLine(lrec)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	assert.Equal(t, model.Dollars(105), gotLine.UnitAmount)
	assert.Equal(t, 1, gotLine.Quantity)
	assert.Equal(t, line.Amount(), gotLine.Amount())
	assert.Equal(t, lrec, enc.EncodeLine(id, gotLine))

	charge := model.TransactionCharge{
		TransactionID: 99,
		Timestamp:     ts,
		Amount:        model.Dollars(259.98),
		PaymentMethod: "Visa xxxx-1234",
		Result:        model.ChargeFraudSuspected,
	}
	crec := enc.EncodeCharge(charge)
	require.Len(t, crec, TransactionChargeSize)

	gotCharge, err := DecodeCharge(crec)
	require.NoError(t, err)
	assert.Equal(t, charge, gotCharge)
}

func TestEncoder_Overflow(t *testing.T) {
	var logs bytes.Buffer
	enc := newTestEncoder(&logs)

	c := model.Customer{
		FirstName: strings.Repeat("é", 20),
		LastName:  "Smith",
		State:     "MN",
		Archetype: model.ArchetypeCorporate,
	}
	rec := enc.EncodeCustomer(c)

	got, err := DecodeCustomer(rec)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 16), got.FirstName)
	assert.True(t, utf8.ValidString(got.FirstName))
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, int64(1), enc.Overflows())
	assert.Contains(t, logs.String(), "first_name")
}

func TestDecode_Errors(t *testing.T) {
	_, err := DecodeCustomer(make([]byte, 10))
	assert.Error(t, err)

	_, err = DecodeCustomer(make([]byte, CustomerSize))
	assert.Error(t, err, "zero archetype tag")

	_, err = DecodeProperty(make([]byte, PropertySize))
	assert.Error(t, err, "zero type tag")

	bad := make([]byte, TransactionChargeSize)
	bad[TransactionChargeLayout.Field("result").Offset] = 7
	_, err = DecodeCharge(bad)
	assert.Error(t, err)

	_, _, err = DecodeLine(make([]byte, TransactionLineSize+1))
	assert.Error(t, err)
}
