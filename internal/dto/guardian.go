package dto

import "time"

// GuardianListQuery carries filter, sort and pagination input for the
// guardian list endpoint.
type GuardianListQuery struct {
	Search         string
	Email          string
	DocumentID     string
	Phone          string
	HasOpenInvoice *bool
	HasMissingDoc  *bool
	OrderBy        string
	Page           int
	PageSize       int
}

// InvoiceStatusAll disables the status filter on detail queries.
const InvoiceStatusAll = "all"

// GuardianDetailFilters narrows the invoices returned on a detail query.
// Zero values mean no filtering, which is also the only cacheable form.
type GuardianDetailFilters struct {
	AcademicYear  string
	InvoiceStatus string
}

// Empty reports whether no invoice filter is applied.
func (f GuardianDetailFilters) Empty() bool {
	return f.AcademicYear == "" && (f.InvoiceStatus == "" || f.InvoiceStatus == InvoiceStatusAll)
}

// FinancialSummary aggregates invoice delinquency over the list view.
type FinancialSummary struct {
	DelinquentGuardians int     `json:"delinquent_guardians"`
	DelinquencyRate     float64 `json:"delinquency_rate"`
	OpenInvoices        int     `json:"open_invoices"`
	TotalPendingValue   float64 `json:"total_pending_value"`
}

// DocumentSummary reports contact/identity completeness across guardians.
type DocumentSummary struct {
	CompleteGuardians int     `json:"complete_guardians"`
	CompletenessRate  float64 `json:"completeness_rate"`
}

// GuardianStats is the aggregate counters response.
type GuardianStats struct {
	TotalGuardians int              `json:"total_guardians"`
	TotalStudents  int              `json:"total_students"`
	Financial      FinancialSummary `json:"financial"`
	Documents      DocumentSummary  `json:"documents"`
	Relationships  map[string]int   `json:"relationships"`
	LastUpdated    time.Time        `json:"last_updated"`
}
