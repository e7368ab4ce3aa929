package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MaxPayloadDepth bounds nesting of the serialized input payload. Deeper
// values are replaced with a placeholder.
const MaxPayloadDepth = 8

const truncatedValue = "[truncated]"

const responseContract = "Analyze the provided data and respond with a valid JSON object.\n" +
	"Your response MUST be valid JSON - no markdown, no code blocks, just the JSON object."

// BuildPrompt renders the prompt for a role. The input is normalized through
// JSON so the model sees exactly what would be serialized, bounded to
// MaxPayloadDepth. It also returns the top-level input keys.
func BuildPrompt(role, instructions string, input any) (string, []string, error) {
	normalized, err := normalize(input)
	if err != nil {
		return "", nil, fmt.Errorf("encode input payload: %w", err)
	}
	bounded := boundDepth(normalized, 0)

	body, err := json.MarshalIndent(bounded, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encode input payload: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Role: ")
	sb.WriteString(role)
	sb.WriteString("\nInstructions: ")
	sb.WriteString(strings.TrimSpace(instructions))
	sb.WriteString("\n\nInput Data:\n")
	sb.Write(body)
	sb.WriteString("\n\n")
	sb.WriteString(responseContract)
	return sb.String(), topLevelKeys(bounded), nil
}

func normalize(input any) (any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func boundDepth(v any, depth int) any {
	switch val := v.(type) {
	case map[string]any:
		if depth >= MaxPayloadDepth {
			return truncatedValue
		}
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = boundDepth(child, depth+1)
		}
		return out
	case []any:
		if depth >= MaxPayloadDepth {
			return truncatedValue
		}
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = boundDepth(child, depth+1)
		}
		return out
	default:
		return v
	}
}

func topLevelKeys(v any) []string {
	m, ok := v.(map[string]any)
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
