package service

import "fmt"

// Cache key builders. Every key carries the tenant segment; call sites
// never assemble keys by hand, so a missing tenant prefix cannot leak
// one school's data into another's reads.

func bulkGuardiansKey(tenantID string) string {
	return fmt.Sprintf("guardians:tenant:%s:all", tenantID)
}

func bulkRelationsKey(tenantID string) string {
	return fmt.Sprintf("relations:tenant:%s:all", tenantID)
}

func bulkAcademicsKey(tenantID string) string {
	return fmt.Sprintf("academics:tenant:%s:all", tenantID)
}

func processedListKey(tenantID string) string {
	return fmt.Sprintf("guardians:tenant:%s:processed_list", tenantID)
}

func guardianDetailKey(guardianID int64, tenantID string) string {
	return fmt.Sprintf("guardian:detail:%d:tenant:%s", guardianID, tenantID)
}

func studentInvoicesKey(tenantID string, studentID int64) string {
	return fmt.Sprintf("invoices:tenant:%s:student:%d", tenantID, studentID)
}

func statsKey(tenantID string) string {
	return fmt.Sprintf("guardians:tenant:%s:stats", tenantID)
}

// guardianViewPattern matches the processed list, the guardians bulk
// dataset and the stats snapshot for one tenant.
func guardianViewPattern(tenantID string) string {
	return fmt.Sprintf("guardians:tenant:%s:*", tenantID)
}
