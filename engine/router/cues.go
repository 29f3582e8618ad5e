package router

// Cue vocabulary for the lexical route classifier. The sets are data so
// they can be tested and extended without touching the decision rules.
// Matching is substring containment against the lowercased query, so
// multi-word cues match as phrases.

var structuredCues = []string{
	"max", "highest", "lowest", "average", "sum", "count", "how many",
	"total", "runtime", "budget", "box office", "revenue", "grossed",
	"year", "released", "release_year", "imdb", "metacritic", "rating",
	"rt", "tomato", "score", "numeric", "number", "greater", "less",
	"before", "after", "since", "between", "top",
}

var unstructuredCues = []string{
	"theme", "themes", "critics say", "critics", "review", "describe",
	"described", "described as", "plot", "summary", "opinion",
	"sentiment", "tone", "character", "relationship", "emotional",
}

var comparativeCues = []string{
	"compare", "vs", "versus", "contrast", "than", "against", "both",
}

// Standalone-word markers for the tie-break rules; these match on token
// boundaries, not substrings.

var listingMarkers = []string{"which", "when", "how", "many", "list", "show"}

var explanatoryMarkers = []string{"why", "describe", "explain", "theme", "themes"}
