package translate

import (
	"fmt"
	"strings"
)

const batchPromptTemplate = `You are a professional subtitle translator. Translate each tagged %s subtitle line into natural, colloquial %s.

Rules:
- The input contains lines tagged <L1>, <L2>, and so on.
- Reply with exactly the same tags, one line per tag, in the same order.
- Keep each translation on a single line after its tag.
- Translate meaning faithfully, keep the register casual and natural.
- Output the %[2]s translation only; never repeat the %[1]s source text.
- Do not add explanations, notes, or any text outside the tagged lines.`

const linePromptTemplate = `You are a professional subtitle translator. Translate the %s subtitle line the user sends into natural, colloquial %s.

Reply with the translation only, on a single line, with no tags, quotes, or explanations.`

// BatchSystemPrompt builds the system prompt for tagged batch translation.
func BatchSystemPrompt(sourceLanguage, targetLanguage string) string {
	return fmt.Sprintf(batchPromptTemplate, sourceLanguage, targetLanguage)
}

// LineSystemPrompt builds the system prompt for single-line fallback
// translation.
func LineSystemPrompt(sourceLanguage, targetLanguage string) string {
	return fmt.Sprintf(linePromptTemplate, sourceLanguage, targetLanguage)
}

// FormatBatch renders the tagged user prompt for one chunk of lines.
// Tags are 1-based within the chunk.
func FormatBatch(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "<L%d>%s\n", i+1, line)
	}
	return sb.String()
}
