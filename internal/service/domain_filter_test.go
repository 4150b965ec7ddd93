package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"solar-assistant-go/internal/config"
	"solar-assistant-go/internal/model"
)

func newTestFilter(depth int) *DomainFilter {
	return NewDomainFilter(config.AssistantConfig{LookbackDepth: depth})
}

func TestIsSolarRelatedKeywords(t *testing.T) {
	f := newTestFilter(3)
	inputs := []string{
		"How efficient are SOLAR panels?",
		"Explain photovoltaic cells",
		"Is my PV array big enough",
		"What counts as renewable energy?",
		"How does net metering work",
		"Best solar battery brands",
		"does the sun matter in winter",
	}
	for _, in := range inputs {
		assert.True(t, f.IsSolarRelated(in, nil), in)
	}
}

func TestIsSolarRelatedNoKeywordNoPronoun(t *testing.T) {
	f := newTestFilter(3)
	history := []model.Turn{{Question: "What is a solar inverter?"}}
	for _, in := range []string{"What is the capital of France?", "Tell me a joke", ""} {
		assert.False(t, f.IsSolarRelated(in, nil), in)
		assert.False(t, f.IsSolarRelated(in, history), in)
	}
}

func TestIsSolarRelatedPronounLookback(t *testing.T) {
	f := newTestFilter(3)

	solar := []model.Turn{{Question: "How do solar panels work?", Answer: "..."}}
	assert.True(t, f.IsSolarRelated("How much does it cost?", solar))
	assert.True(t, f.IsSolarRelated("are they worth it?", solar))

	offTopic := []model.Turn{{Question: "Who won the football match?", Answer: "..."}}
	assert.False(t, f.IsSolarRelated("How much does it cost?", offTopic))

	assert.False(t, f.IsSolarRelated("How much does it cost?", nil))
}

func TestIsSolarRelatedOnlyInspectsMostRecentTurn(t *testing.T) {
	f := newTestFilter(3)
	history := []model.Turn{
		{Question: "Tell me about solar cells"},
		{Question: "What is the weather in Paris?"},
	}
	assert.False(t, f.IsSolarRelated("what about them?", history))
}

func TestIsSolarRelatedPronounChain(t *testing.T) {
	history := []model.Turn{
		{Question: "How do solar inverters work?"},
		{Question: "How long do they last?"},
	}
	assert.True(t, newTestFilter(3).IsSolarRelated("and what does that cost", history))
	// 单步回溯只检查上一轮，上一轮本身不含关键词
	assert.False(t, newTestFilter(1).IsSolarRelated("and what does that cost", history))
	assert.False(t, newTestFilter(-1).IsSolarRelated("and what does that cost", history))
}

func TestNewDomainFilterZeroValueUsesDefaults(t *testing.T) {
	f := NewDomainFilter(config.AssistantConfig{})
	history := []model.Turn{
		{Question: "How do solar panels work?"},
		{Question: "How long do they last?"},
	}
	assert.True(t, f.IsSolarRelated("how much does it cost?", history[:1]))
	assert.True(t, f.IsSolarRelated("and what does that cost", history))
	assert.Equal(t, DefaultLookbackDepth, f.lookbackDepth)
}

func TestIsSolarRelatedPronounIsWholeToken(t *testing.T) {
	f := newTestFilter(3)
	solar := []model.Turn{{Question: "solar panel sizing"}}
	assert.True(t, f.IsSolarRelated("is it?", solar))
	assert.True(t, f.IsSolarRelated("it's expensive", solar))
	assert.False(t, f.IsSolarRelated("Italy has good weather", solar))
}

func TestNewDomainFilterCustomKeywords(t *testing.T) {
	f := NewDomainFilter(config.AssistantConfig{Keywords: []string{" Heat Pump "}, Pronouns: []string{"IT"}, LookbackDepth: 1})
	assert.True(t, f.IsSolarRelated("heat pump sizing", nil))
	assert.False(t, f.IsSolarRelated("solar panel sizing", nil))
	assert.True(t, f.IsSolarRelated("is it loud", []model.Turn{{Question: "HEAT PUMP noise"}}))
}
