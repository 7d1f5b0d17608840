package sanitizer

func NormalizeStringSlice(items []string, normalizer Strategy) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

func NormalizeBadges(badges []string) []string {
	return NormalizeStringSlice(badges, NormalizeBadge)
}

func NormalizeDomains(domains []string) []string {
	return NormalizeStringSlice(domains, NormalizeDomain)
}

func NormalizeKeywords(keywords []string) []string {
	return NormalizeStringSlice(keywords, func(s string) string { return trimAndLower(TrimAndNormalize(s)) })
}
