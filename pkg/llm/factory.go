package llm

import (
	"fmt"

	"oracle/pkg/config"
)

// NewClient constructs the LLM client named by the provider configuration.
func NewClient(cfg config.ProviderConfig) (Client, error) {
	switch cfg.Name {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.Host, cfg.Model), nil
	case config.ProviderMock:
		return NewMockClient(demoResponses()...), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Name)
	}
}

// demoResponses returns one canned reply per analysis stage so the mock
// provider produces a plausible end-to-end run without any API keys.
func demoResponses() []MockResponse {
	return []MockResponse{
		{Content: "The candidate is a senior backend engineer with nine years of experience " +
			"across fintech and developer infrastructure. Their profile highlights deep Go and " +
			"distributed-systems work, two staff-level promotions, and consistent ownership of " +
			"revenue-critical services. Publicly visible contributions suggest strong written " +
			"communication and a preference for small, high-trust teams."},
		{Content: "Research across public sources shows the candidate's current employer has " +
			"frozen senior hiring and paused the platform roadmap they led, a common precursor " +
			"to attrition. Conference talks and open-source activity indicate growing interest " +
			"in streaming data systems. Compensation benchmarks for their market place them " +
			"near the midpoint of the senior band, leaving room for a competitive offer."},
		{Content: "Fitness evaluation: strong match. The role requires Go, event-driven " +
			"architecture, and prior ownership of latency-sensitive services, all of which the " +
			"candidate demonstrates directly. The main gap is limited people-management " +
			"experience, which matters only if the role expands into a lead position. Overall " +
			"fit score: 8.5 out of 10, with low ramp-up risk."},
		{Content: "Outreach strategy: lead with the streaming platform ownership opportunity " +
			"rather than compensation. Reference their recent conference talk in the opening " +
			"line, propose a short technical conversation with the platform lead instead of a " +
			"recruiter screen, and follow up within four business days. Avoid boilerplate " +
			"about company culture; their writing suggests they respond to concrete technical " +
			"scope and autonomy."},
	}
}
