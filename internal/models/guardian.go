package models

import "time"

// Relationship codes in join priority order.
const (
	RelationshipMother      = "mother"
	RelationshipFather      = "father"
	RelationshipPrimary     = "primary"
	RelationshipSecondary   = "secondary"
	RelationshipResponsible = "responsible"
)

// Child period values derived from the class name.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
	PeriodFullTime  = "full_time"
	PeriodUnknown   = "unknown"
)

// Child enrollment status values derived from the academic record.
const (
	StatusActive      = "active"
	StatusCompleted   = "completed"
	StatusTransferred = "transferred"
	StatusInactive    = "inactive"
)

// Relationship describes how a guardian relates to their first child.
type Relationship struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// Address is the guardian's postal address copied from the registrar.
type Address struct {
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// Document is a synthetic descriptor for a contact/identity field the
// registrar has on file for the guardian.
type Document struct {
	Type         string  `json:"type"`
	Value        string  `json:"value"`
	Status       string  `json:"status"`
	DeliveryDate *string `json:"delivery_date"`
}

// Invoice is the normalized billing record attached to a child.
type Invoice struct {
	InvoiceNumber  string  `json:"invoice_number"`
	Bank           *string `json:"bank,omitempty"`
	IssueDate      *string `json:"issue_date,omitempty"`
	DueDate        *string `json:"due_date,omitempty"`
	PaymentDate    *string `json:"payment_date,omitempty"`
	TotalAmount    float64 `json:"total_amount"`
	ReceivedAmount float64 `json:"received_amount"`
	Status         string  `json:"status"`
	StatusDisplay  string  `json:"status_display"`
	Installment    *string `json:"installment,omitempty"`
	DigitableLine  *string `json:"digitable_line,omitempty"`
	PaymentURL     *string `json:"payment_url,omitempty"`
}

// Child is a student embedded under a guardian.
type Child struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Course           string    `json:"course"`
	Grade            string    `json:"grade"`
	Period           string    `json:"period"`
	Status           string    `json:"status"`
	Invoices         []Invoice `json:"invoices"`
	MissingDocuments []string  `json:"missing_documents"`
}

// Situation aggregates open invoices and missing documents per guardian.
type Situation struct {
	HasOpenInvoice   bool    `json:"has_open_invoice"`
	HasMissingDoc    bool    `json:"has_missing_doc"`
	OpenInvoiceCount int     `json:"open_invoice_count"`
	OpenInvoiceTotal float64 `json:"open_invoice_total"`
	MissingDocCount  int     `json:"missing_doc_count"`
}

// Guardian is the denormalized guardian-centric view joining the three
// bulk registrar datasets.
type Guardian struct {
	ID                       int64        `json:"id"`
	Name                     string       `json:"name"`
	DocumentID               string       `json:"document_id"`
	Email                    string       `json:"email"`
	Phone                    string       `json:"phone"`
	Address                  Address      `json:"address"`
	Relationship             Relationship `json:"relationship"`
	IsFinancialResponsible   bool         `json:"is_financial_responsible"`
	IsPedagogicalResponsible bool         `json:"is_pedagogical_responsible"`
	Children                 []Child      `json:"children"`
	Documents                []Document   `json:"documents"`
	Situation                Situation    `json:"situation"`
}

// ProcessedList is the aggregator output cached per tenant.
type ProcessedList struct {
	Guardians   []Guardian `json:"guardians"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
