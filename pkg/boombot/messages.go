package boombot

import (
	"errors"
	"strings"
)

// WelcomeMessage answers /start.
const WelcomeMessage = "📊 *Welcome to BoomBot!*\n\n" +
	"I'll help you find promising Indian stocks for the week ahead.\n\n" +
	"*🎯 How to use:*\n" +
	"Just send me a stock sector name like:\n\n" +
	"• Banking • IT • Pharma • Auto\n" +
	"• FMCG • Steel • Oil • Telecom\n" +
	"• Real Estate • Power • Chemicals\n\n" +
	"*Example:* Type 'Banking' and I'll suggest top banking stocks!\n\n" +
	"📈 Ready to find your next winning stock?"

// DescriptionMessage answers /description and /help.
const DescriptionMessage = "🤖 *BoomBot Description*\n\n" +
	"BoomBot is your personal stock advisor for the Indian market. It helps you identify promising stocks from various sectors based on recent trends and market analysis.\n\n" +
	"*How to use:*\n" +
	"1. Type a stock sector name (e.g., 'Banking', 'IT', 'Pharma').\n" +
	"2. BoomBot will suggest two stocks from that sector with:\n" +
	"   - Entry Price\n" +
	"   - Exit Target\n" +
	"   - Reason for Growth\n\n" +
	"*Example:*\n" +
	"Send 'IT' to get stock suggestions from the IT sector.\n\n" +
	"📈 Start exploring sectors and make informed investment decisions!"

// InvalidSectorMessage is the guidance sent for unrecognized input.
const InvalidSectorMessage = "❌ *Invalid Sector!*\n\n" +
	"Please enter a valid Indian stock sector name such as:\n\n" +
	"• *Banking* (HDFC, ICICI, SBI)\n" +
	"• *IT* (TCS, Infosys, Wipro)\n" +
	"• *Pharma* (Sun Pharma, Cipla, Dr. Reddy's)\n" +
	"• *Auto* (Maruti, Tata Motors, M&M)\n" +
	"• *FMCG* (HUL, ITC, Nestle)\n" +
	"• *Steel* (Tata Steel, JSW Steel)\n" +
	"• *Oil* (Reliance, ONGC, IOC)\n" +
	"• *Telecom* (Airtel, Jio, Vi)\n" +
	"• *Real Estate* (DLF, Godrej Properties)\n" +
	"• *Power* (NTPC, Power Grid)\n\n" +
	"Just type the sector name (e.g., 'Banking' or 'IT')"

// RateLimitedMessage is sent when a chat asks too often.
const RateLimitedMessage = "⏳ You're sending requests too quickly. Please wait a moment and try again."

// SectorListMessage renders the vocabulary for /sectors.
func SectorListMessage(v *Vocabulary) string {
	var b strings.Builder
	b.WriteString("📚 *Supported sectors*\n\n")
	for _, sector := range v.SortedSectors() {
		b.WriteString("• ")
		b.WriteString(titleCase(sector))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// ErrorMessage renders a generation failure for the user. Upstream API errors
// carry the provider detail; everything else is reported as a plain error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case ErrCodeUpstream, ErrCodeEmptyResponse:
			return "❌ Generation API Error:\n" + e.Detail()
		case ErrCodeUpstreamTimeout:
			return "⚠️ Error: the recommendation service timed out, please try again"
		case ErrCodeRateLimited:
			return RateLimitedMessage
		case ErrCodeInvalidSector:
			return InvalidSectorMessage
		}
		return "⚠️ Error: " + e.Detail()
	}
	return "⚠️ Error: " + err.Error()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		switch {
		case len(w) <= 2 || w == "fmcg" || w == "nbfc":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
