package service

import (
	"math"

	"github.com/noah-isme/guardian-portal-api/internal/models"
)

// Enrich returns a copy of the guardian with per-child invoices
// attached and the situation recomputed. Children missing from the map
// get an empty invoice list.
func Enrich(guardian models.Guardian, invoicesByStudent map[int64][]models.Invoice) models.Guardian {
	children := make([]models.Child, len(guardian.Children))
	copy(children, guardian.Children)
	for i := range children {
		invoices := invoicesByStudent[children[i].ID]
		if invoices == nil {
			invoices = []models.Invoice{}
		}
		children[i].Invoices = invoices
	}
	guardian.Children = children
	guardian.Situation = ComputeSituation(guardian)
	return guardian
}

// ComputeSituation derives the aggregate situation from the guardian's
// current children invoices and documents. Pure: same inputs, same output.
func ComputeSituation(guardian models.Guardian) models.Situation {
	situation := models.Situation{}

	var openTotal float64
	for _, child := range guardian.Children {
		for _, invoice := range child.Invoices {
			if invoice.Status != models.InvoiceStatusOpen {
				continue
			}
			situation.OpenInvoiceCount++
			openTotal += invoice.TotalAmount
		}
	}
	situation.OpenInvoiceTotal = roundHalfUp(openTotal)
	situation.HasOpenInvoice = situation.OpenInvoiceCount > 0

	for _, document := range guardian.Documents {
		if document.DeliveryDate == nil || document.Status == "pending" {
			situation.MissingDocCount++
		}
	}
	situation.HasMissingDoc = situation.MissingDocCount > 0

	return situation
}

// roundHalfUp rounds to 2 decimal places, half away from zero upward.
func roundHalfUp(value float64) float64 {
	return math.Floor(value*100+0.5) / 100
}
