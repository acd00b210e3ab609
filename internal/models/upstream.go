package models

// Upstream record shapes as returned by the registrar API. Optional
// fields are pointers because the registrar emits explicit nulls.

// UpstreamGuardian is one guardian record from the bulk guardians endpoint.
type UpstreamGuardian struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	DocumentID *string `json:"document_id"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	PostalCode *string `json:"postal_code"`
	Street     *string `json:"street"`
	Number     *string `json:"number"`
	Complement *string `json:"complement"`
	District   *string `json:"district"`
	City       *string `json:"city"`
	State      *string `json:"state"`
}

// UpstreamStudentRelation maps a student to up to four guardians.
type UpstreamStudentRelation struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	MotherID            *int64 `json:"mother_id"`
	FatherID            *int64 `json:"father_id"`
	PrimaryGuardianID   *int64 `json:"primary_guardian_id"`
	SecondaryGuardianID *int64 `json:"secondary_guardian_id"`
}

// UpstreamStudentAcademic carries course placement for one student,
// joined to the relation record by student_id.
type UpstreamStudentAcademic struct {
	StudentID        int64   `json:"student_id"`
	CourseName       *string `json:"course_name"`
	GradeName        *string `json:"grade_name"`
	ClassName        *string `json:"class_name"`
	EnrollmentStatus *string `json:"enrollment_status"`
}

// UpstreamInvoice is one billing record from the per-student invoices
// endpoint. Dates stay as registrar-formatted strings (YYYY-MM-DD).
type UpstreamInvoice struct {
	InvoiceNumber  string  `json:"invoice_number"`
	Bank           *string `json:"bank"`
	IssueDate      *string `json:"issue_date"`
	DueDate        *string `json:"due_date"`
	PaymentDate    *string `json:"payment_date"`
	TotalAmount    float64 `json:"total_amount"`
	ReceivedAmount float64 `json:"received_amount"`
	Status         string  `json:"status"`
	Installment    *string `json:"installment"`
	DigitableLine  *string `json:"digitable_line"`
	PaymentURL     *string `json:"payment_url"`
}

// Invoice status codes used by the registrar.
const (
	InvoiceStatusOpen      = "OPEN"
	InvoiceStatusSettled   = "SETTLED"
	InvoiceStatusCancelled = "CANCELLED"
)
