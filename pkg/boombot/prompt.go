package boombot

import (
	"fmt"
	"strings"
)

const defaultStocksPerReply = 2

// SystemPrompt frames the generation request.
const SystemPrompt = "You are a professional stock advisor in the Indian market."

// BuildPrompt returns the request text for sector. count is clamped to
// [1, MaxRecommendations].
func BuildPrompt(sector string, count int) string {
	if count <= 0 {
		count = defaultStocksPerReply
	}
	if count > MaxRecommendations {
		count = MaxRecommendations
	}
	noun := "stocks"
	if count == 1 {
		noun = "stock"
	}

	var sb strings.Builder
	sb.WriteString(SystemPrompt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Suggest %d Indian %s from the %s sector that are expected to perform well this week.\n\n", count, noun, strings.TrimSpace(sector))
	sb.WriteString("For each stock, provide:\n")
	sb.WriteString("- Stock Name\n")
	sb.WriteString("- Entry Price\n")
	sb.WriteString("- Exit Target\n")
	sb.WriteString("- Reason for Growth (based on trends or recent news)\n")
	sb.WriteString("- One-line company summary\n\n")
	sb.WriteString("Respond concisely using bullet points. Write each field on its own line as a bold label followed by the value, ")
	sb.WriteString("for example **Stock Name:** ..., **Entry Price:** ..., **Exit Target:** ..., **Reason for Growth:** ...")
	return sb.String()
}
