package canonical

// BatchResult partitions a submitted batch into disjoint outcomes. Every
// input string lands in exactly one list, order preserved. Valid carries
// canonical forms; Invalid and Duplicates carry the original raw strings so
// callers can echo back exactly what the user typed.
type BatchResult struct {
	Valid      []string `json:"validDomains"`
	Invalid    []string `json:"invalidDomains"`
	Duplicates []string `json:"duplicates"`
}

// Process canonicalizes each raw string in order and partitions the results.
// Deduplication is by canonical form, not literal string: "Example.com" and
// "www.example.com" in one batch yield one valid entry and one duplicate,
// even though the raw spellings differ.
func Process(raws []string) BatchResult {
	result := BatchResult{}
	seen := make(map[string]struct{}, len(raws))

	for _, raw := range raws {
		name, err := Canonicalize(raw)
		if err != nil {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		if _, dup := seen[name]; dup {
			result.Duplicates = append(result.Duplicates, raw)
			continue
		}
		seen[name] = struct{}{}
		result.Valid = append(result.Valid, name)
	}

	return result
}
