package providerwebhook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

const (
	testShopID     = "7b0c6d8e-2f45-4f0a-9b3e-3a9d5c1e0a11"
	testProviderID = "c1d2e3f4-5a6b-4c7d-8e9f-0a1b2c3d4e5f"
)

func TestParseEventSignup(t *testing.T) {
	body := []byte(`{"type":"user.signup","data":{"shopId":"` + testShopID + `","walletProviderId":"` + testProviderID + `","partnerUserId":" bob ","acquisitionSource":"link"}}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	require.NotNil(t, event.Signup)
	assert.Nil(t, event.Activation)
	assert.Equal(t, enums.WebhookEventUserSignup, event.Type)
	assert.Equal(t, "bob", event.Signup.PartnerUserID)
	assert.Equal(t, enums.AcquisitionSourceLink, event.Signup.AcquisitionSource)
	assert.Equal(t, testShopID, event.Signup.ShopID.String())
}

func TestParseEventActivation(t *testing.T) {
	body := []byte(`{"type":"invoice.paid","data":{"externalInvoiceId":"inv-1","shopId":"` + testShopID + `","walletProviderId":"` + testProviderID + `","partnerUserId":"bob","grossRevenue":"100.50","currency":"usd","paidAt":"2025-03-01T12:00:00+02:00","transactionHash":"0xabc"}}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	require.NotNil(t, event.Activation)
	a := event.Activation
	assert.Equal(t, "inv-1", a.ExternalInvoiceID)
	assert.True(t, a.GrossRevenue.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, "USD", a.Currency)
	assert.Equal(t, enums.RevenueEventTypeCPA, a.EventType)
	require.NotNil(t, a.PaidAt)
	assert.Equal(t, 10, a.PaidAt.Hour())
	require.NotNil(t, a.TransactionHash)
	assert.Equal(t, "0xabc", *a.TransactionHash)
	assert.JSONEq(t, `{"externalInvoiceId":"inv-1","shopId":"`+testShopID+`","walletProviderId":"`+testProviderID+`","partnerUserId":"bob","grossRevenue":"100.50","currency":"usd","paidAt":"2025-03-01T12:00:00+02:00","transactionHash":"0xabc"}`, string(event.Data))
}

func TestParseEventAcceptsLegacyGrossAmount(t *testing.T) {
	body := []byte(`{"type":"user.activated","data":{"externalInvoiceId":"inv-2","shopId":"` + testShopID + `","walletProviderId":"` + testProviderID + `","affiliateUserId":"0f8fad5b-d9cb-469f-a165-70867728950e","grossAmount":42}}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	assert.True(t, event.Activation.GrossRevenue.Equal(decimal.NewFromInt(42)))
	require.NotNil(t, event.Activation.AffiliateUserID)
	assert.Empty(t, event.Activation.PartnerUserID)
	assert.Nil(t, event.Activation.PaidAt)
}

func TestParseEventRejections(t *testing.T) {
	base := `"shopId":"` + testShopID + `","walletProviderId":"` + testProviderID + `"`
	cases := map[string]string{
		"invalid json":       `{"type":`,
		"trailing data":      `{"type":"user.signup","data":{}} {}`,
		"missing type":       `{"data":{}}`,
		"unsupported type":   `{"type":"user.deleted","data":{}}`,
		"missing data":       `{"type":"user.signup"}`,
		"null data":          `{"type":"user.signup","data":null}`,
		"signup no partner":  `{"type":"user.signup","data":{` + base + `}}`,
		"signup bad shop":    `{"type":"user.signup","data":{"shopId":"nope","walletProviderId":"` + testProviderID + `","partnerUserId":"bob"}}`,
		"bad source":         `{"type":"user.signup","data":{` + base + `,"partnerUserId":"bob","acquisitionSource":"TV"}}`,
		"no addressing":      `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","grossRevenue":10}}`,
		"zero gross":         `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","partnerUserId":"bob","grossRevenue":0}}`,
		"missing gross":      `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","partnerUserId":"bob"}}`,
		"non cpa":            `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","partnerUserId":"bob","grossRevenue":5,"eventType":"REVSHARE"}}`,
		"bad paidAt":         `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","partnerUserId":"bob","grossRevenue":5,"paidAt":"yesterday"}}`,
		"bad currency":       `{"type":"user.activated","data":{` + base + `,"externalInvoiceId":"i","partnerUserId":"bob","grossRevenue":5,"currency":"EURO"}}`,
		"missing invoice id": `{"type":"user.activated","data":{` + base + `,"partnerUserId":"bob","grossRevenue":5}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEvent([]byte(body))
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
