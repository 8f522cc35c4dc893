package telegram

// MaxMessageLength is the Telegram limit for one text message, in characters.
const MaxMessageLength = 4096

// SplitMessage cuts text into consecutive chunks of at most limit runes.
// Concatenating the chunks yields text unchanged.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if text == "" {
		return nil
	}
	var chunks []string
	count := 0
	start := 0
	for i := range text {
		if count == limit {
			chunks = append(chunks, text[start:i])
			start = i
			count = 0
		}
		count++
	}
	return append(chunks, text[start:])
}
