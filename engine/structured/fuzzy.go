package structured

import "strings"

// tokenSetRatio scores how well two strings match on an order-insensitive
// token basis. Both strings are lowercased and split into unique tokens;
// the score is the shared-token count over the smaller set size, so a
// query that fully contains a title (or vice versa) scores 1.0. Always
// in [0,1].
func tokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared) / float64(smaller)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		tok := strings.Trim(f, "?.,!;:'\"()")
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}
