package boombot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeBankingStocks = `Okay, here are three banking stocks to watch this week:

**Stock Name:** HDFC Bank
**Entry Price:** ₹1,500
**Exit Target:** ₹1,650
**Reason for Growth:** Strong loan growth and stable margins
**Company Summary:** India's largest private lender.

**Stock Name:** ICICI Bank
**Entry Price:** ₹1,050
**Exit Target:** ₹1,160
**Reason for Growth:** Improving asset quality

**Stock Name:** State Bank of India
**Entry Price:** ₹780
**Exit Target:** ₹850
**Reason for Growth:** Government capex tailwinds

**Disclaimer:** This is not financial advice.
**Stock Name:** Ignored Corp`

func stockBlock(i int) string {
	return fmt.Sprintf("**Stock Name:** Stock %d\n**Entry Price:** %d\n**Exit Target:** %d\n**Reason for Growth:** Reason %d\n\n", i, i*100, i*110, i)
}

func TestFormatResponseThreeBlocks(t *testing.T) {
	out := FormatResponse(threeBankingStocks)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "HDFC Bank | Entry Price: ₹1,500 | Exit Price: ₹1,650 | Reason: Strong loan growth and stable margins", lines[0])
	assert.Equal(t, "ICICI Bank | Entry Price: ₹1,050 | Exit Price: ₹1,160 | Reason: Improving asset quality", lines[1])
	assert.Equal(t, "State Bank of India | Entry Price: ₹780 | Exit Price: ₹850 | Reason: Government capex tailwinds", lines[2])
	assert.NotContains(t, out, "Ignored Corp")
}

func TestFormatResponseNameOnly(t *testing.T) {
	out := FormatResponse("**Stock Name:** Tata Steel")
	assert.Equal(t, "Tata Steel | Entry Price: TBD | Exit Price: TBD | Reason: Strong fundamentals and market outlook", out)
}

func TestFormatResponseCapsAtThree(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		b.WriteString(stockBlock(i))
	}
	parsed := ParseResponse(b.String())
	require.Len(t, parsed.Recommendations, MaxRecommendations)
	assert.False(t, parsed.Fallback)
	lines := strings.Split(parsed.Text, "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, fmt.Sprintf("Stock %d |", i+1)), line)
	}
}

func TestFormatResponseNameLineFlushesIncompleteRecord(t *testing.T) {
	raw := "**Stock Name:** Alpha\n**Stock Name:** Beta\n**Entry Price:** 55"
	out := FormatResponse(raw)
	assert.Equal(t,
		"Alpha | Entry Price: TBD | Exit Price: TBD | Reason: Strong fundamentals and market outlook\n"+
			"Beta | Entry Price: 55 | Exit Price: TBD | Reason: Strong fundamentals and market outlook",
		out)
}

func TestFormatResponseIgnoresAttributesBeforeName(t *testing.T) {
	raw := "**Entry Price:** 100\n**Exit Target:** 120\n**Stock Name:** Wipro"
	assert.Equal(t, "Wipro | Entry Price: TBD | Exit Price: TBD | Reason: Strong fundamentals and market outlook", FormatResponse(raw))
}

func TestFormatResponseLabelVariants(t *testing.T) {
	raw := strings.Join([]string{
		"*   **Stock Name:** Infosys",
		"- **Entry Price**: ₹1,420",
		"1. **EXIT TARGET:** ₹1,560",
		"***Reason for Growth:*** Deal wins in BFSI",
		"**Unrelated:** skip me",
		"plain prose line",
	}, "\n")
	records := ParseRecommendations(raw)
	require.Len(t, records, 1)
	assert.Equal(t, Recommendation{
		Name:            "Infosys",
		EntryPrice:      "₹1,420",
		ExitTarget:      "₹1,560",
		ReasonForGrowth: "Deal wins in BFSI",
	}, records[0])
}

func TestFormatResponseSkipsFillerLines(t *testing.T) {
	out := FormatResponse("**Stock Name:** Okay Corp")
	assert.Equal(t, NoRecommendationsMessage, out)

	raw := "**Stock Name:** Sun Pharma\n**Reason for Growth:** Analysts suggest upside"
	assert.Equal(t, "Sun Pharma | Entry Price: TBD | Exit Price: TBD | Reason: Strong fundamentals and market outlook", FormatResponse(raw))
}

func TestFormatResponseProseFallback(t *testing.T) {
	prose := "The banking sector looks stable this week with steady credit growth across large lenders."
	parsed := ParseResponse(prose)
	assert.True(t, parsed.Fallback)
	assert.Empty(t, parsed.Recommendations)
	assert.Equal(t, prose, parsed.Text)
}

func TestFormatResponseShortProse(t *testing.T) {
	assert.Equal(t, NoRecommendationsMessage, FormatResponse("No idea."))
	assert.Equal(t, NoRecommendationsMessage, FormatResponse(""))
	assert.Equal(t, NoRecommendationsMessage, FormatResponse(strings.Repeat("x", 50)))
	assert.Equal(t, strings.Repeat("x", 51), FormatResponse(strings.Repeat("x", 51)))
	assert.Equal(t, NoRecommendationsMessage, FormatResponse("**Disclaimer:** "+strings.Repeat("long text ", 20)))
}

func TestFormatResponseFallbackCleanup(t *testing.T) {
	raw := "  Market ***update*** for the week.\n\n\n\n\nBanks remain resilient amid steady deposit growth.\n**Disclaimer:** Not advice."
	want := "Market **update** for the week.\n\nBanks remain resilient amid steady deposit growth."
	assert.Equal(t, want, FormatResponse(raw))
}

func TestFormatResponseIdempotentOnOwnOutput(t *testing.T) {
	inputs := []string{
		"  Market ***update*** for the week.\n\n\n\n\nBanks remain resilient amid steady deposit growth.",
		"The banking sector looks stable this week with steady credit growth across large lenders.",
		"No idea.",
		threeBankingStocks,
	}
	for _, input := range inputs {
		once := FormatResponse(input)
		assert.Equal(t, once, FormatResponse(once), "input %q", input)
	}
}

func TestStripDisclaimer(t *testing.T) {
	assert.Equal(t, "keep\n", StripDisclaimer("keep\n**disclaimer:** drop\nmore"))
	assert.Equal(t, "keep\n", StripDisclaimer("keep\n**DISCLAIMER:** drop"))
	assert.Equal(t, "keep ", StripDisclaimer("keep **DisClaimer:** inline"))
	assert.Equal(t, "no marker", StripDisclaimer("no marker"))
}

func TestFormatResponseUppercaseDisclaimerEndsRecords(t *testing.T) {
	raw := "**Stock Name:** Lupin\n**Entry Price:** 2000\n**DISCLAIMER:** not advice\n**Stock Name:** Hidden Ltd\n**Entry Price:** 10"
	records := ParseRecommendations(raw)
	require.Len(t, records, 1)
	assert.Equal(t, "Lupin", records[0].Name)
	assert.Equal(t, "2000", records[0].EntryPrice)
	assert.NotContains(t, FormatResponse(raw), "Hidden Ltd")
}

func TestRecommendationLineDefaults(t *testing.T) {
	rec := Recommendation{Name: "ITC", EntryPrice: "  ", ExitTarget: "480"}
	assert.Equal(t, "ITC | Entry Price: TBD | Exit Price: 480 | Reason: Strong fundamentals and market outlook", rec.Line())
}
