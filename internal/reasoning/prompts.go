package reasoning

import (
	"fmt"
	"strings"

	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/selector"
)

// ClassifierRole is the system message for question classification.
const ClassifierRole = `You are an AI assistant analyzing questions about video content.
Your task is to determine if user questions require further video context or not.
Be concise and precise in your responses.`

// AssistantRole is the system message for describing frames and direct answers.
const AssistantRole = "You are a helpful AI assistant speaking through a pair of smart glasses."

// semanticGroups maps a broad group name to the detector labels it covers.
var semanticGroups = map[string][]string{
	"animals":     {"dog", "cat", "bird", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe"},
	"vehicles":    {"car", "truck", "bus", "motorbike", "bicycle", "aeroplane", "train", "boat"},
	"electronics": {"tvmonitor", "laptop", "cell phone", "mouse", "keyboard", "remote"},
	"furniture":   {"chair", "sofa", "bed", "diningtable", "bench"},
	"kitchenware": {"cup", "wine glass", "bottle", "bowl", "fork", "knife", "spoon"},
}

// SemanticGroup returns the broad group a label belongs to, or "".
func SemanticGroup(category string) string {
	for group, members := range semanticGroups {
		for _, m := range members {
			if m == category {
				return group
			}
		}
	}
	return ""
}

// ExpectedCounts scans a question for "these/those/the" followed by a word
// ending in s and records the singular form as expected to be plural.
func ExpectedCounts(question string) map[string]bool {
	counts := make(map[string]bool)
	words := strings.Fields(strings.ToLower(question))
	for i, w := range words {
		if w != "these" && w != "those" && w != "the" {
			continue
		}
		if i+1 >= len(words) {
			continue
		}
		next := strings.Trim(words[i+1], "?!.,;:")
		if strings.HasSuffix(next, "s") {
			counts[strings.TrimRight(next, "s")] = true
		}
	}
	return counts
}

// InitialPrompt asks the service to classify question.
func InitialPrompt(question string) string {
	return fmt.Sprintf(`Analyze whether this question requires video analysis based on these STRICT rules:

1. VIDEO ANALYSIS REQUIRED WHEN (ANY):
   - Demonstrative pronouns ("this/that/these/those")
   - Definite articles ("the") with physical objects
   - Possessive context ("my/your/our") with objects
   - Location words ("here/there/current")
   - Visual commands ("identify/read/describe")

2. GENERAL KNOWLEDGE WHEN:
   - No reference to physically present objects
   - Abstract/historical questions

OBJECT HANDLING RULES:
1. MUST ONLY use these detectable classes: %s
2. Identify up to %d relevant objects maximum
3. Convert plurals to singular (cars -> car, people -> person)
4. If object mentioned isn't in the classes but visual context exists:
   - Still return needs_video:true
   - Add "%s" to the list
5. Return empty list for relevant_objects when needs_video is false

USER QUESTION: %q

Return ONLY this JSON (NO explanations):
{
    "needs_video": boolean,
    "relevant_objects": ["exact-class", "exact-class"] or ["%s"] or []
}`, strings.Join(detector.COCOClasses[:], ", "), MaxCategories, selector.NoRelevantObject, question, selector.NoRelevantObject)
}

// CollectivePrompt asks the service to answer question from several frames
// at once, pointing out count and category mismatches.
func CollectivePrompt(question string, categories []string) string {
	if len(categories) == 0 || selector.IsOnlySentinel(categories) {
		return fmt.Sprintf(`The user asked: %q

ANALYSIS INSTRUCTIONS:
1. First, count and acknowledge what's currently visible in my view.
2. For each object, identify its specific type, model, or characteristics.
3. Provide interesting details about the specific types you've identified.
4. Keep your response conversational and oriented to the current view.

Through my smart glasses, I'll analyze what's currently in my field of vision.`, question)
	}

	expected := ExpectedCounts(question)
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: %q\n\n", question)
	b.WriteString("IMPORTANT CONTEXT CHECKS:\n")
	b.WriteString("1. The user's question implies they expect to see: ")
	for i, c := range categories {
		if i > 0 {
			b.WriteString(", ")
		}
		count := "single"
		if expected[c] {
			count = "multiple"
		}
		fmt.Fprintf(&b, "%s (%s", c, count)
		if g := SemanticGroup(c); g != "" {
			fmt.Fprintf(&b, ", category: %s", g)
		}
		b.WriteString(")")
	}
	b.WriteString(`
2. Through my smart glasses, I'll analyze what's currently in view.
3. Check for BOTH plural/singular mismatches AND missing objects.

RESPONSE STRUCTURE:
1. PLURAL CHECK FIRST:
   - If user expects multiple but one visible: "I notice you asked about multiple [objects], but I'm only seeing one [object] right now. This [object] is..."
   - If user expects one but multiple visible: "I notice you asked about a [object], and I can actually see several [objects] in view. These [objects] are..."

2. THEN OBJECT CHECK:
   - Same category (provide details): "I notice you asked about a [specific_object], but I'm currently seeing a different [category] - a [present_object]. This [present_object] is..."
   - Different category (be brief): "I notice you asked about a [specific_object], but I don't see any [specific_object] in my current view. Feel free to point me towards a [specific_object] if you'd like me to take a look!"

ANALYSIS INSTRUCTIONS:
1. ALWAYS check for plural/singular mismatches first
2. Then check for missing objects
3. Keep your response conversational and real-time oriented
4. Only provide details for objects that match the user's category of interest

`)
	fmt.Fprintf(&b, "Through my smart glasses, I'll analyze what's currently in view regarding the %s you mentioned.", strings.Join(categories, ", "))
	return b.String()
}

// DirectAnswerPrompt asks for a short factual answer.
func DirectAnswerPrompt(question string) string {
	return fmt.Sprintf(`Answer this question directly with factual information in simple, concise terms. Keep your response to 1-2 sentences and focus on key facts.

Question: %s

Provide a clear, factual answer:`, question)
}
