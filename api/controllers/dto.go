package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// amount renders a decimal as an exact JSON number.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type withdrawalDTO struct {
	ID                 uuid.UUID    `json:"id"`
	Amount             json.Number  `json:"amount"`
	PaymentType        string       `json:"paymentType"`
	DestinationAddress *string      `json:"destinationAddress,omitempty"`
	Status             string       `json:"status"`
	PayoutAmount       *json.Number `json:"payoutAmount,omitempty"`
	TransactionHash    *string      `json:"transactionHash,omitempty"`
	FailureReason      *string      `json:"failureReason,omitempty"`
	PaidAt             *time.Time   `json:"paidAt,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

func newWithdrawalDTO(w *models.Withdrawal) withdrawalDTO {
	dto := withdrawalDTO{
		ID:                 w.ID,
		Amount:             amount(w.RequestedAmount),
		PaymentType:        w.PaymentType.String(),
		DestinationAddress: w.DestinationAddress,
		Status:             w.Status.String(),
		TransactionHash:    w.TransactionHash,
		FailureReason:      w.FailureReason,
		PaidAt:             w.PaidAt,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
	if w.PayoutAmount.Valid {
		payout := amount(w.PayoutAmount.Decimal)
		dto.PayoutAmount = &payout
	}
	return dto
}

type commissionDTO struct {
	ID              uuid.UUID   `json:"id"`
	InvoiceID       *uuid.UUID  `json:"invoiceId,omitempty"`
	AffiliateUserID uuid.UUID   `json:"affiliateUserId"`
	EventType       string      `json:"eventType"`
	Status          string      `json:"status"`
	GrossRevenue    json.Number `json:"grossRevenue"`
	NetRevenue      json.Number `json:"netRevenue"`
	PlatformRevenue json.Number `json:"platformRevenue"`
	AvailableAt     *time.Time  `json:"availableAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func newCommissionDTO(c *models.Commission) commissionDTO {
	return commissionDTO{
		ID:              c.ID,
		InvoiceID:       c.InvoiceID,
		AffiliateUserID: c.AffiliateUserID,
		EventType:       string(c.EventType),
		Status:          c.Status.String(),
		GrossRevenue:    amount(c.GrossRevenue),
		NetRevenue:      amount(c.NetRevenue),
		PlatformRevenue: amount(c.PlatformRevenue),
		AvailableAt:     c.AvailableAt,
		CreatedAt:       c.CreatedAt,
	}
}
