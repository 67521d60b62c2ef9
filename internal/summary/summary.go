package summary

import (
	"regexp"
	"strings"
)

// Keyword tables drive both the category label and the short description.
// This is plain string matching, not a model.
var categoryKeywords = map[string][]string{
	"politics": {
		"parliament", "president", "minister", "government", "election",
		"βουλή", "κυβέρνηση", "υπουργός", "εκλογές", "akel", "disy",
	},
	"economy": {
		"economy", "bank", "inflation", "tax", "investment", "tourism revenue",
		"οικονομία", "τράπεζα", "φόρος", "euro", "energy", "gas field",
	},
	"society": {
		"hospital", "school", "police", "court", "strike", "protest",
		"αστυνομία", "νοσοκομείο", "σχολείο", "απεργία",
	},
	"weather": {
		"weather", "storm", "heatwave", "rainfall", "wildfire", "earthquake",
		"καιρός", "καταιγίδα", "καύσωνας", "πυρκαγιά", "σεισμός",
	},
	"cyprus-issue": {
		"cyprus problem", "buffer zone", "reunification", "cyprus talks",
		"occupied", "κυπριακό", "κατεχόμενα", "unficyp",
	},
}

var categoryDescriptions = map[string]string{
	"politics":     "Political developments in Cyprus",
	"economy":      "Economy and business news",
	"society":      "Local news and society",
	"weather":      "Weather and environment",
	"cyprus-issue": "Cyprus issue and regional affairs",
	"general":      "News from Cyprus",
}

// Categorize labels a title with the first matching category, "general"
// when nothing matches.
func Categorize(title string) string {
	// Fixed check order so the label is deterministic.
	for _, category := range []string{"cyprus-issue", "politics", "economy", "weather", "society"} {
		if containsAny(title, categoryKeywords[category]) {
			return category
		}
	}
	return "general"
}

// Describe produces the short descriptive line shown under a headline.
func Describe(title string) string {
	category := Categorize(title)
	return categoryDescriptions[category]
}

// containsAny matches phrases by substring and short tokens by word
// boundary, so "gas" doesn't fire inside "Las Vegas".
func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 4 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Fallback builds a summary from content when no AI summary is available:
// the first couple of full sentences, or a truncated prefix.
func Fallback(content string) string {
	c := strings.TrimSpace(content)
	if c == "" {
		return ""
	}
	sentences := strings.Split(c, ".")
	var picked []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}
	if len(picked) == 0 {
		if len(c) > 160 {
			return c[:160] + "..."
		}
		return c
	}
	return strings.Join(picked, ". ") + "."
}
