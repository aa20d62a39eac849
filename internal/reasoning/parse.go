package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/selector"
)

// labelAliases maps common names to the labels the detector emits.
var labelAliases = map[string]string{
	"motorcycle":   "motorbike",
	"airplane":     "aeroplane",
	"couch":        "sofa",
	"tv":           "tvmonitor",
	"television":   "tvmonitor",
	"potted plant": "pottedplant",
	"dining table": "diningtable",
	"people":       "person",
	"phone":        "cell phone",
	"knives":       "knife",
	"mice":         "mouse",
	"ski":          "skis",
}

type classificationJSON struct {
	NeedsVideo      *bool    `json:"needs_video"`
	RelevantObjects []string `json:"relevant_objects"`
}

// ParseClassification decodes the classifier's JSON answer. Categories are
// normalized to detector labels; unknown ones become the sentinel. The list
// is deduplicated and capped at MaxCategories, and is empty when no visual
// context is needed.
func ParseClassification(raw string) (Classification, error) {
	body := stripCodeFence(raw)

	var parsed classificationJSON
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.NeedsVideo == nil {
		return Classification{}, fmt.Errorf("%w: missing needs_video", ErrMalformedResponse)
	}

	c := Classification{
		NeedsVisual: *parsed.NeedsVideo,
		Categories:  []string{},
	}
	if !c.NeedsVisual {
		return c, nil
	}

	seen := make(map[string]bool)
	for _, obj := range parsed.RelevantObjects {
		label := NormalizeCategory(obj)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		c.Categories = append(c.Categories, label)
		if len(c.Categories) == MaxCategories {
			break
		}
	}
	return c, nil
}

// NormalizeCategory maps a free-form object name onto a detector label.
// Blank input gives "". Names outside the vocabulary give the sentinel.
func NormalizeCategory(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if n == selector.NoRelevantObject {
		return n
	}
	if alias, ok := labelAliases[n]; ok {
		n = alias
	}
	if detector.IsCOCOClass(n) {
		return n
	}
	for _, suffix := range []string{"s", "es"} {
		singular, ok := strings.CutSuffix(n, suffix)
		if !ok {
			continue
		}
		if detector.IsCOCOClass(singular) {
			return singular
		}
		if alias, ok := labelAliases[singular]; ok {
			return alias
		}
	}
	return selector.NoRelevantObject
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
