package providerwebhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Event is a provider delivery converted to typed domain input. Exactly one of
// Signup and Activation is set.
type Event struct {
	Type       enums.WebhookEventType
	Data       json.RawMessage
	Signup     *SignupPayload
	Activation *ActivationPayload
}

type SignupPayload struct {
	ShopID            uuid.UUID
	WalletProviderID  uuid.UUID
	PartnerUserID     string
	AcquisitionSource enums.AcquisitionSource
}

type ActivationPayload struct {
	ExternalInvoiceID string
	ShopID            uuid.UUID
	WalletProviderID  uuid.UUID
	PartnerUserID     string
	AffiliateUserID   *uuid.UUID
	GrossRevenue      decimal.Decimal
	Currency          string
	PaidAt            *time.Time
	TransactionHash   *string
	AcquisitionSource enums.AcquisitionSource
	EventType         enums.RevenueEventType
}

type envelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

type signupData struct {
	ShopID            string `json:"shopId" validate:"required,uuid"`
	WalletProviderID  string `json:"walletProviderId" validate:"required,uuid"`
	PartnerUserID     string `json:"partnerUserId" validate:"required"`
	AcquisitionSource string `json:"acquisitionSource"`
}

type activationData struct {
	ExternalInvoiceID string           `json:"externalInvoiceId" validate:"required"`
	ShopID            string           `json:"shopId" validate:"required,uuid"`
	WalletProviderID  string           `json:"walletProviderId" validate:"required,uuid"`
	PartnerUserID     string           `json:"partnerUserId"`
	AffiliateUserID   string           `json:"affiliateUserId" validate:"omitempty,uuid"`
	GrossRevenue      *decimal.Decimal `json:"grossRevenue"`
	GrossAmount       *decimal.Decimal `json:"grossAmount"`
	Currency          string           `json:"currency" validate:"omitempty,len=3"`
	PaidAt            string           `json:"paidAt"`
	TransactionHash   string           `json:"transactionHash"`
	AcquisitionSource string           `json:"acquisitionSource"`
	EventType         string           `json:"eventType"`
}

// ParseEvent validates body once and converts it into an Event. Every failure
// is a validation error.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := decodeStrictly(body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid JSON payload")
	}
	if err := payloadValidator.Struct(env); err != nil {
		return nil, validationError(err, "type is required")
	}
	eventType, err := enums.ParseWebhookEventType(strings.TrimSpace(env.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported event type").
			WithDetails(map[string]any{"type": env.Type})
	}
	if len(bytes.TrimSpace(env.Data)) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "data is required")
	}

	if eventType == enums.WebhookEventUserSignup {
		signup, err := parseSignup(env.Data)
		if err != nil {
			return nil, err
		}
		return &Event{Type: eventType, Data: env.Data, Signup: signup}, nil
	}
	activation, err := parseActivation(env.Data)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Data: env.Data, Activation: activation}, nil
}

func parseSignup(raw json.RawMessage) (*SignupPayload, error) {
	var data signupData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signup data")
	}
	data.PartnerUserID = strings.TrimSpace(data.PartnerUserID)
	if err := payloadValidator.Struct(data); err != nil {
		return nil, validationError(err, "invalid signup data")
	}
	source, err := enums.ParseAcquisitionSourceOrDefault(strings.ToUpper(strings.TrimSpace(data.AcquisitionSource)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid acquisitionSource")
	}
	shopID, err := parseID("shopId", data.ShopID)
	if err != nil {
		return nil, err
	}
	providerID, err := parseID("walletProviderId", data.WalletProviderID)
	if err != nil {
		return nil, err
	}
	return &SignupPayload{
		ShopID:            shopID,
		WalletProviderID:  providerID,
		PartnerUserID:     data.PartnerUserID,
		AcquisitionSource: source,
	}, nil
}

func parseActivation(raw json.RawMessage) (*ActivationPayload, error) {
	var data activationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid activation data")
	}
	data.ExternalInvoiceID = strings.TrimSpace(data.ExternalInvoiceID)
	data.PartnerUserID = strings.TrimSpace(data.PartnerUserID)
	data.AffiliateUserID = strings.TrimSpace(data.AffiliateUserID)
	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	if err := payloadValidator.Struct(data); err != nil {
		return nil, validationError(err, "invalid activation data")
	}
	if data.PartnerUserID == "" && data.AffiliateUserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partnerUserId or affiliateUserId is required")
	}

	gross := data.GrossRevenue
	if gross == nil {
		gross = data.GrossAmount
	}
	if gross == nil || !gross.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grossRevenue must be a positive number")
	}

	eventType := enums.RevenueEventTypeCPA
	if et := strings.ToUpper(strings.TrimSpace(data.EventType)); et != "" {
		eventType = enums.RevenueEventType(et)
		if !eventType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "eventType must be CPA")
		}
	}
	source, err := enums.ParseAcquisitionSourceOrDefault(strings.ToUpper(strings.TrimSpace(data.AcquisitionSource)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid acquisitionSource")
	}

	shopID, err := parseID("shopId", data.ShopID)
	if err != nil {
		return nil, err
	}
	providerID, err := parseID("walletProviderId", data.WalletProviderID)
	if err != nil {
		return nil, err
	}

	payload := &ActivationPayload{
		ExternalInvoiceID: data.ExternalInvoiceID,
		ShopID:            shopID,
		WalletProviderID:  providerID,
		PartnerUserID:     data.PartnerUserID,
		GrossRevenue:      *gross,
		Currency:          data.Currency,
		AcquisitionSource: source,
		EventType:         eventType,
	}
	if data.AffiliateUserID != "" {
		id, err := parseID("affiliateUserId", data.AffiliateUserID)
		if err != nil {
			return nil, err
		}
		payload.AffiliateUserID = &id
	}
	if ts := strings.TrimSpace(data.PaidAt); ts != "" {
		paidAt, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "paidAt must be RFC3339")
		}
		paidAt = paidAt.UTC()
		payload.PaidAt = &paidAt
	}
	if hash := strings.TrimSpace(data.TransactionHash); hash != "" {
		payload.TransactionHash = &hash
	}
	return payload, nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a UUID")
	}
	return id, nil
}

func decodeStrictly(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unexpected trailing data")
	}
	return nil
}

func validationError(err error, fallback string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fallback)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fallback).WithDetails(fields)
}
