package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/models"
)

// Sort directions accepted by the list endpoint.
const (
	OrderByNameAsc  = "name"
	OrderByNameDesc = "-name"
)

// ApplyFilters filters the denormalized list in memory.
func ApplyFilters(guardians []models.Guardian, query dto.GuardianListQuery) []models.Guardian {
	filtered := make([]models.Guardian, 0, len(guardians))

	search := strings.ToLower(strings.TrimSpace(query.Search))
	email := strings.ToLower(strings.TrimSpace(query.Email))
	document := normalizeDocument(query.DocumentID)
	phone := normalizeDigits(query.Phone)

	for _, guardian := range guardians {
		if search != "" && !matchesSearch(guardian, search) {
			continue
		}
		if email != "" && strings.ToLower(guardian.Email) != email {
			continue
		}
		if document != "" && normalizeDocument(guardian.DocumentID) != document {
			continue
		}
		if phone != "" && normalizeDigits(guardian.Phone) != phone {
			continue
		}
		if query.HasOpenInvoice != nil && guardian.Situation.HasOpenInvoice != *query.HasOpenInvoice {
			continue
		}
		if query.HasMissingDoc != nil && guardian.Situation.HasMissingDoc != *query.HasMissingDoc {
			continue
		}
		filtered = append(filtered, guardian)
	}
	return filtered
}

// SortGuardians orders the slice stably on the uppercased name.
func SortGuardians(guardians []models.Guardian, orderBy string) {
	descending := orderBy == OrderByNameDesc
	sort.SliceStable(guardians, func(i, j int) bool {
		a := strings.ToUpper(guardians[i].Name)
		b := strings.ToUpper(guardians[j].Name)
		if descending {
			return a > b
		}
		return a < b
	})
}

// Paginate slices one 1-indexed page out of the list. Out-of-range
// pages yield an empty page with the correct total count.
func Paginate(guardians []models.Guardian, page, pageSize int) ([]models.Guardian, *models.Pagination) {
	if page < 1 {
		page = 1
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(guardians)}

	start := (page - 1) * pageSize
	if start >= len(guardians) {
		return []models.Guardian{}, pagination
	}
	end := start + pageSize
	if end > len(guardians) {
		end = len(guardians)
	}
	return guardians[start:end], pagination
}

// matchesSearch checks the free-text term against the guardian's
// identity fields and each child's name.
func matchesSearch(guardian models.Guardian, loweredTerm string) bool {
	if strings.Contains(strings.ToLower(guardian.Name), loweredTerm) {
		return true
	}
	if strings.Contains(strings.ToLower(guardian.Email), loweredTerm) {
		return true
	}
	if normalizedTerm := normalizeDocument(loweredTerm); normalizedTerm != "" &&
		strings.Contains(normalizeDocument(guardian.DocumentID), normalizedTerm) {
		return true
	}
	if digits := normalizeDigits(loweredTerm); digits != "" &&
		strings.Contains(normalizeDigits(guardian.Phone), digits) {
		return true
	}
	for _, child := range guardian.Children {
		if strings.Contains(strings.ToLower(child.Name), loweredTerm) {
			return true
		}
	}
	return false
}

// normalizeDocument strips punctuation from a document id and lowercases it.
func normalizeDocument(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// normalizeDigits keeps only decimal digits.
func normalizeDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
