package domain

import "github.com/shopspring/decimal"

// Document is the printable projection of an invoice: its totals and lines
// together with the claimant and claim reference it bills.
type Document struct {
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     string          `json:"invoice_date"`
	ClaimantName    string          `json:"claimant_name"`
	ClaimReference  string          `json:"claim_reference"`
	Items           []DocumentLine  `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	ManagerApproved bool            `json:"manager_approved"`
}

type DocumentLine struct {
	ItemName  string          `json:"item_name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// NewDocument builds the projection. Claimant and reference are empty when
// the claim can no longer be resolved.
func NewDocument(invoice Invoice, claimantName, claimReference string) Document {
	lines := make([]DocumentLine, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		lines = append(lines, DocumentLine{
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return Document{
		InvoiceNumber:   invoice.InvoiceNumber,
		InvoiceDate:     invoice.CreatedAt.Format("2006-01-02"),
		ClaimantName:    claimantName,
		ClaimReference:  claimReference,
		Items:           lines,
		Subtotal:        invoice.Subtotal,
		Tax:             invoice.Tax,
		Total:           invoice.Total,
		ManagerApproved: invoice.Status == InvoiceStatusApproved,
	}
}
