package qagen

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt is sent as the system message unless overridden.
const DefaultSystemPrompt = "As a highly skilled assistant, you are tasked with generating informative question and answer pairs from the provided text. " +
	"Focus on crafting Q&A pairs that are relevant to the primary subject matter of the text. " +
	"Your questions should be engaging and answers concise, avoiding details of specific examples that are not representative of the text's broader themes. " +
	"Aim for a comprehensive understanding that captures the essence of the content without being sidetracked by less relevant details."

const instructions = `Your task is to dissect this text for its central themes and most significant details, crafting question and answer pairs that reflect the core message and primary content. Avoid questions about specific examples that do not contribute to the overall understanding of the subject. The questions should cover different types: factual, inferential, thematic, etc., and answers must be concise and pertinent to the text's main intent. Please generate as many relevant question and answers as possible, focusing on the significance and relevance of each to the text's main topic. Provide the results in the following JSON format:
{
    "qa_pairs": [
        {
            "question": "<Your question>",
            "answer": "<Your answer>"
        }
    ]
}

Respond with ONLY the JSON object, no other text.`

// BuildPrompt wraps one chunk of segment text in the generation
// instructions. Title and heading are optional context lines.
func BuildPrompt(title, heading, text string) string {
	var sb strings.Builder
	sb.WriteString("Here is the user input to work with:\n---\n")
	if title != "" {
		fmt.Fprintf(&sb, "Document: %q\n", title)
	}
	if heading != "" {
		fmt.Fprintf(&sb, "Section: %q\n", heading)
	}
	sb.WriteString(text)
	sb.WriteString("\n---\n")
	sb.WriteString(instructions)
	return sb.String()
}
