package infection

// ComplianceRate derives the hand-hygiene compliance percentage from an
// audit's raw counts. Zero opportunities yields 0, never NaN or an error.
func ComplianceRate(compliantActions, opportunitiesObserved int) float64 {
	if opportunitiesObserved <= 0 {
		return 0
	}
	return float64(compliantActions) / float64(opportunitiesObserved) * 100
}
