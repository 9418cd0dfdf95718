package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptEmbedsChatLog(t *testing.T) {
	prompt, err := BuildPrompt([]string{"hello everyone", "how's it going"})
	require.NoError(t, err)

	assert.Contains(t, prompt, `["hello everyone","how's it going"]`)
	assert.Contains(t, prompt, `"mod_alert_level"`)
	assert.Contains(t, prompt, `"problems"`)
	assert.Contains(t, prompt, `"recent_messages"`)
	assert.Contains(t, prompt, "strict JSON format")
	// Percent literals must survive the format string
	assert.Contains(t, prompt, "(0-100%)")
	assert.NotContains(t, prompt, "%%")
	assert.NotContains(t, prompt, "%!")
}

func TestParseResultValid(t *testing.T) {
	result, err := ParseResult(`{
		"toxicity": "10%",
		"spam": "0%",
		"negativity": "5%",
		"friendliness": "80%",
		"helpfulness": "60%",
		"mod_alert_level": "20%",
		"problems": [],
		"recent_messages": ["hello everyone"]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "20%", result.ModAlertLevel)
	assert.Equal(t, "80%", result.Friendliness)
	assert.Equal(t, []string{"hello everyone"}, result.RecentMessages)
	assert.Empty(t, result.Problems)
}

func TestParseResultStripsCodeFence(t *testing.T) {
	fenced := "```json\n{\"mod_alert_level\": \"85%\", \"problems\": [\"High toxicity\"]}\n```"

	result, err := ParseResult(fenced)
	require.NoError(t, err)

	assert.Equal(t, "85%", result.ModAlertLevel)
	assert.Equal(t, []string{"High toxicity"}, result.Problems)
}

func TestParseResultStripsBareFence(t *testing.T) {
	fenced := "```\n{\"mod_alert_level\": \"30%\"}\n```"

	result, err := ParseResult(fenced)
	require.NoError(t, err)

	assert.Equal(t, "30%", result.ModAlertLevel)
}

func TestParseResultRejectsNonJSON(t *testing.T) {
	_, err := ParseResult("I think this user seems fine overall.")
	assert.Error(t, err)
}

func TestParseResultRejectsMissingAlertLevel(t *testing.T) {
	_, err := ParseResult(`{"toxicity": "10%", "spam": "0%"}`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mod_alert_level")
}

func TestParseResultRejectsEmpty(t *testing.T) {
	_, err := ParseResult("")
	assert.Error(t, err)
}
