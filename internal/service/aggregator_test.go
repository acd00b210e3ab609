package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/guardian-portal-api/internal/models"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestAggregateJoinsAndSorts(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	guardians := Aggregate(AggregateInput{
		Guardians: []models.UpstreamGuardian{
			{ID: 2, Name: "zilda souza", Email: strPtr("zilda@example.com")},
			{ID: 1, Name: "Ana Lima", DocumentID: strPtr("123.456.789-00"), Email: strPtr("ana@example.com"), Phone: strPtr("(11) 99999-0000")},
		},
		Relations: []models.UpstreamStudentRelation{
			{ID: 10, Name: "Bruno Lima", MotherID: int64Ptr(1)},
			{ID: 11, Name: "Carla Souza", FatherID: int64Ptr(2)},
		},
		Academics: []models.UpstreamStudentAcademic{
			{StudentID: 10, CourseName: strPtr("Elementary"), GradeName: strPtr("5th"), ClassName: strPtr("5A Matutino"), EnrollmentStatus: strPtr("enrolled")},
		},
		GeneratedAt: generatedAt,
	})

	require.Len(t, guardians, 2)
	// Case-insensitive name order: Ana before zilda.
	assert.Equal(t, int64(1), guardians[0].ID)
	assert.Equal(t, int64(2), guardians[1].ID)

	ana := guardians[0]
	assert.Equal(t, models.RelationshipMother, ana.Relationship.Code)
	assert.Equal(t, "Mother", ana.Relationship.Display)
	require.Len(t, ana.Children, 1)
	assert.Equal(t, "Bruno Lima", ana.Children[0].Name)
	assert.Equal(t, "Elementary", ana.Children[0].Course)
	assert.Equal(t, models.PeriodMorning, ana.Children[0].Period)
	assert.Equal(t, models.StatusActive, ana.Children[0].Status)

	// Three populated fields yield three delivered documents.
	require.Len(t, ana.Documents, 3)
	for _, doc := range ana.Documents {
		assert.Equal(t, "delivered", doc.Status)
		require.NotNil(t, doc.DeliveryDate)
		assert.Equal(t, "2026-03-01", *doc.DeliveryDate)
	}

	// Only email populated for the second guardian.
	assert.Len(t, guardians[1].Documents, 1)
}

func TestAggregateRelationshipPriorityAndDedup(t *testing.T) {
	// Student points at guardian 1 both as mother and as primary
	// guardian: the child appears once, with the mother code.
	guardians := Aggregate(AggregateInput{
		Guardians: []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
		Relations: []models.UpstreamStudentRelation{
			{ID: 10, Name: "Bruno", MotherID: int64Ptr(1), PrimaryGuardianID: int64Ptr(1)},
		},
		GeneratedAt: time.Now(),
	})

	require.Len(t, guardians, 1)
	require.Len(t, guardians[0].Children, 1)
	assert.Equal(t, models.RelationshipMother, guardians[0].Relationship.Code)
}

func TestAggregateKeepsChildlessGuardians(t *testing.T) {
	guardians := Aggregate(AggregateInput{
		Guardians:   []models.UpstreamGuardian{{ID: 7, Name: "Solo"}},
		GeneratedAt: time.Now(),
	})

	require.Len(t, guardians, 1)
	assert.Empty(t, guardians[0].Children)
	assert.Equal(t, models.RelationshipResponsible, guardians[0].Relationship.Code)
	assert.Equal(t, "Responsible", guardians[0].Relationship.Display)
}

func TestAggregateChildWithoutAcademicRecord(t *testing.T) {
	guardians := Aggregate(AggregateInput{
		Guardians: []models.UpstreamGuardian{{ID: 1, Name: "Ana"}},
		Relations: []models.UpstreamStudentRelation{
			{ID: 10, Name: "Bruno", MotherID: int64Ptr(1)},
		},
		GeneratedAt: time.Now(),
	})

	require.Len(t, guardians, 1)
	require.Len(t, guardians[0].Children, 1)
	child := guardians[0].Children[0]
	assert.Equal(t, models.PeriodUnknown, child.Period)
	assert.Equal(t, models.StatusActive, child.Status)
	assert.Empty(t, child.Course)
}

func TestDerivePeriod(t *testing.T) {
	cases := map[string]string{
		"5A Morning":        models.PeriodMorning,
		"Turma Matutino":    models.PeriodMorning,
		"3B Vespertino":     models.PeriodAfternoon,
		"Afternoon group":   models.PeriodAfternoon,
		"EJA Noturno":       models.PeriodEvening,
		"Night class":       models.PeriodEvening,
		"Integral 2":        models.PeriodFullTime,
		"Full Time K":       models.PeriodFullTime,
		"Sala 12":           models.PeriodUnknown,
		"":                  models.PeriodUnknown,
	}
	for className, expected := range cases {
		assert.Equal(t, expected, derivePeriod(className), "class %q", className)
	}
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, models.StatusActive, deriveStatus("enrolled"))
	assert.Equal(t, models.StatusActive, deriveStatus(""))
	assert.Equal(t, models.StatusCompleted, deriveStatus("Completed"))
	assert.Equal(t, models.StatusTransferred, deriveStatus("transferred"))
	assert.Equal(t, models.StatusInactive, deriveStatus("withdrawn"))
	assert.Equal(t, models.StatusInactive, deriveStatus("locked"))
	assert.Equal(t, models.StatusInactive, deriveStatus("cancelled"))
}
