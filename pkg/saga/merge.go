package saga

// Merge folds an incoming step payload into the accumulated payload.
// The merge is right-biased: for any key present in both maps the incoming
// value wins. That bias is deliberate and documented behavior — later steps
// override earlier steps on key collisions, so the operation is not
// associative across unrelated steps that happen to share keys.
func Merge(accumulated, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(accumulated)+len(incoming))
	for k, v := range accumulated {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}
