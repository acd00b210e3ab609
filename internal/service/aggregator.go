package service

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/guardian-portal-api/internal/models"
)

// AggregateInput bundles everything the join needs. GeneratedAt stamps
// the synthetic document descriptors so Aggregate stays a pure function
// of its arguments.
type AggregateInput struct {
	Guardians   []models.UpstreamGuardian
	Relations   []models.UpstreamStudentRelation
	Academics   []models.UpstreamStudentAcademic
	GeneratedAt time.Time
}

// relationshipPriority orders the four relation fields; when a student
// points at the same guardian through more than one field, the earliest
// matching code wins.
var relationshipPriority = []struct {
	code   string
	getter func(models.UpstreamStudentRelation) *int64
}{
	{models.RelationshipMother, func(r models.UpstreamStudentRelation) *int64 { return r.MotherID }},
	{models.RelationshipFather, func(r models.UpstreamStudentRelation) *int64 { return r.FatherID }},
	{models.RelationshipPrimary, func(r models.UpstreamStudentRelation) *int64 { return r.PrimaryGuardianID }},
	{models.RelationshipSecondary, func(r models.UpstreamStudentRelation) *int64 { return r.SecondaryGuardianID }},
}

// Aggregate joins the three bulk datasets into the guardian-centric
// denormalized view, ordered case-insensitively by guardian name.
// Guardians without children are kept.
func Aggregate(in AggregateInput) []models.Guardian {
	academicsByStudent := make(map[int64]models.UpstreamStudentAcademic, len(in.Academics))
	for _, academic := range in.Academics {
		academicsByStudent[academic.StudentID] = academic
	}

	type assignment struct {
		child models.Child
		code  string
	}
	childrenByGuardian := make(map[int64][]assignment)
	assigned := make(map[int64]map[int64]bool)

	for _, relation := range in.Relations {
		child := buildChild(relation, academicsByStudent)
		for _, rel := range relationshipPriority {
			guardianID := rel.getter(relation)
			if guardianID == nil {
				continue
			}
			if assigned[*guardianID] == nil {
				assigned[*guardianID] = make(map[int64]bool)
			}
			if assigned[*guardianID][relation.ID] {
				continue
			}
			assigned[*guardianID][relation.ID] = true
			childrenByGuardian[*guardianID] = append(childrenByGuardian[*guardianID], assignment{child: child, code: rel.code})
		}
	}

	deliveredAt := in.GeneratedAt.Format("2006-01-02")
	guardians := make([]models.Guardian, 0, len(in.Guardians))
	for _, upstream := range in.Guardians {
		assignments := childrenByGuardian[upstream.ID]
		children := make([]models.Child, 0, len(assignments))
		for _, a := range assignments {
			children = append(children, a.child)
		}

		relationship := models.Relationship{
			Code:    models.RelationshipResponsible,
			Display: relationshipDisplay(models.RelationshipResponsible),
		}
		if len(assignments) > 0 {
			relationship = models.Relationship{
				Code:    assignments[0].code,
				Display: relationshipDisplay(assignments[0].code),
			}
		}

		guardians = append(guardians, models.Guardian{
			ID:         upstream.ID,
			Name:       upstream.Name,
			DocumentID: deref(upstream.DocumentID),
			Email:      deref(upstream.Email),
			Phone:      deref(upstream.Phone),
			Address: models.Address{
				PostalCode: deref(upstream.PostalCode),
				Street:     deref(upstream.Street),
				Number:     deref(upstream.Number),
				Complement: deref(upstream.Complement),
				District:   deref(upstream.District),
				City:       deref(upstream.City),
				State:      deref(upstream.State),
			},
			Relationship: relationship,
			// Reserved: the registrar has no responsibility flags yet.
			IsFinancialResponsible:   false,
			IsPedagogicalResponsible: false,
			Children:                 children,
			Documents:                buildDocuments(upstream, deliveredAt),
			Situation:                models.Situation{},
		})
	}

	sort.SliceStable(guardians, func(i, j int) bool {
		return strings.ToUpper(guardians[i].Name) < strings.ToUpper(guardians[j].Name)
	})
	return guardians
}

func buildChild(relation models.UpstreamStudentRelation, academics map[int64]models.UpstreamStudentAcademic) models.Child {
	child := models.Child{
		ID:               relation.ID,
		Name:             relation.Name,
		Period:           models.PeriodUnknown,
		Status:           models.StatusActive,
		Invoices:         []models.Invoice{},
		MissingDocuments: []string{},
	}
	academic, ok := academics[relation.ID]
	if !ok {
		return child
	}
	child.Course = deref(academic.CourseName)
	child.Grade = deref(academic.GradeName)
	child.Period = derivePeriod(deref(academic.ClassName))
	child.Status = deriveStatus(deref(academic.EnrollmentStatus))
	return child
}

// buildDocuments synthesizes one delivered document descriptor per
// populated contact/identity field.
func buildDocuments(g models.UpstreamGuardian, deliveredAt string) []models.Document {
	docs := []models.Document{}
	add := func(docType string, value *string) {
		if value == nil || strings.TrimSpace(*value) == "" {
			return
		}
		date := deliveredAt
		docs = append(docs, models.Document{
			Type:         docType,
			Value:        *value,
			Status:       "delivered",
			DeliveryDate: &date,
		})
	}
	add("document_id", g.DocumentID)
	add("email", g.Email)
	add("phone", g.Phone)
	return docs
}

// periodTokens are matched as case-insensitive substrings of the class
// name, in declaration order. The registrar mixes English and
// Portuguese class naming.
var periodTokens = []struct {
	period string
	tokens []string
}{
	{models.PeriodMorning, []string{"morning", "matutino", "manhã", "manha"}},
	{models.PeriodAfternoon, []string{"afternoon", "vespertino", "tarde"}},
	{models.PeriodEvening, []string{"evening", "night", "noturno", "noite"}},
	{models.PeriodFullTime, []string{"full time", "full_time", "fulltime", "integral"}},
}

func derivePeriod(className string) string {
	lowered := strings.ToLower(className)
	if lowered == "" {
		return models.PeriodUnknown
	}
	for _, candidate := range periodTokens {
		for _, token := range candidate.tokens {
			if strings.Contains(lowered, token) {
				return candidate.period
			}
		}
	}
	return models.PeriodUnknown
}

func deriveStatus(enrollmentStatus string) string {
	switch strings.ToLower(strings.TrimSpace(enrollmentStatus)) {
	case "completed":
		return models.StatusCompleted
	case "transferred":
		return models.StatusTransferred
	case "withdrawn", "locked", "cancelled":
		return models.StatusInactive
	default:
		// Includes "enrolled", unknown values and missing records.
		return models.StatusActive
	}
}

func relationshipDisplay(code string) string {
	switch code {
	case models.RelationshipMother:
		return "Mother"
	case models.RelationshipFather:
		return "Father"
	case models.RelationshipPrimary:
		return "Primary guardian"
	case models.RelationshipSecondary:
		return "Secondary guardian"
	default:
		return "Responsible"
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
