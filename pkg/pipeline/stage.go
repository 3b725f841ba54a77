package pipeline

import "fmt"

// Stage identifiers. These four strings are the wire-level agent keys and
// are stable across every run.
const (
	StageProfileSummary = "profile_summary"
	StageDeepResearch   = "deep_research"
	StageFitnessEval    = "fitness_eval"
	StageStrategy       = "strategy"
)

// Stage is one fixed unit of work in the pipeline. Stages are defined
// statically at process start and never change.
type Stage struct {
	ID      string
	Ordinal int
	Label   string

	// ExpectedWords is a sizing heuristic used only for client-side
	// progress estimation, never for truncation.
	ExpectedWords int

	systemPrompt string
	userPrompt   func(sc *StageContext) string
}

// Prompts builds the system and user prompt for this stage from the run
// context. The context must already contain the final output of every
// lower-ordinal stage.
func (s Stage) Prompts(sc *StageContext) (system, user string) {
	return s.systemPrompt, s.userPrompt(sc)
}

// Stages returns the fixed pipeline in execution order.
func Stages() []Stage {
	return []Stage{
		{
			ID:            StageProfileSummary,
			Ordinal:       0,
			Label:         "Profile Summarizer",
			ExpectedWords: 260,
			systemPrompt:  sysSummarizer,
			userPrompt:    summarizerPrompt,
		},
		{
			ID:            StageDeepResearch,
			Ordinal:       1,
			Label:         "Deep Research",
			ExpectedWords: 320,
			systemPrompt:  sysResearcher,
			userPrompt:    researcherPrompt,
		},
		{
			ID:            StageFitnessEval,
			Ordinal:       2,
			Label:         "Fitness Evaluation",
			ExpectedWords: 300,
			systemPrompt:  sysEvaluator,
			userPrompt:    evaluatorPrompt,
		},
		{
			ID:            StageStrategy,
			Ordinal:       3,
			Label:         "Strategic Planner",
			ExpectedWords: 280,
			systemPrompt:  sysStrategist,
			userPrompt:    strategistPrompt,
		},
	}
}

const sysSummarizer = `You are an expert talent intelligence analyst specialising in reading LinkedIn profiles.
Your job: analyse the HR manager's LinkedIn profile text and extract structured intelligence.

CONTEXT: A job candidate wants to reach out to this HR manager. Your summary will be used
by downstream agents to research the company and craft a personalised outreach strategy.

RULES:
- Use markdown: ## for section headers, **bold** for names/titles/companies, - for bullets
- Be concise: 3-5 bullets per section, no waffle
- Focus on signals that would help a candidate connect with this person personally`

const sysResearcher = `You are a corporate intelligence researcher. Your job: build a deep intelligence brief
on the HR manager's company so a job candidate can reference specific, accurate details
in their outreach message, making it feel informed and non-generic.

RULES:
- Use markdown: ## for sections, **bold** for key facts, - for bullets
- 4-6 bullets per section, specific and factual
- If you lack live data, reason clearly from the profile context and known industry patterns
- Flag anything a candidate could use as a natural conversation hook`

const sysEvaluator = `You are a career strategist and resume fitness evaluator. Your job: cross-reference
the CANDIDATE'S resume against the HR manager's company and role needs.

IMPORTANT DIRECTION: The CANDIDATE is reaching out TO the HR manager, not the other way around.
Evaluate the candidate's fit from the candidate's perspective.

RULES:
- Use markdown: ## for sections, **bold** for key points
- Be honest and specific: flag real gaps, don't just be positive
- End with ## Fit Score: X/10 and a one-sentence justification`

const sysStrategist = `You are a master job-search outreach strategist. Your job: write a strategy and a
ready-to-send message FROM the candidate TO the HR manager.

CRITICAL DIRECTION - never mix this up:
- SENDER   = the JOB CANDIDATE (whose resume you have)
- RECEIVER = the HR MANAGER (whose LinkedIn profile was analysed)
- The message must be written in FIRST PERSON as the CANDIDATE, addressed to the HR MANAGER by name

RULES:
- Use ## APPROACH STRATEGY and ## OUTREACH MESSAGE as section headers
- Strategy: 4 bullets (channel, timing, conversation hook, what to avoid)
- Message: under 150 words, written AS the candidate TO the HR manager
- Do NOT use placeholder names like [Your Name] — sign off with "Best regards," only
- Reference specific real details from the candidate's background AND the company research
- Lead with value the candidate offers, not a generic compliment
- End with a single low-friction call to action (e.g. "Would a 15-minute call this week work?")`

func summarizerPrompt(sc *StageContext) string {
	return fmt.Sprintf(`Analyse this LinkedIn profile text and extract a structured summary.

LINKEDIN PROFILE TEXT:
%s

Cover: name & title, career history (key milestones only), core skills,
education, personality signals, what they value in candidates.`, sc.Profile)
}

func researcherPrompt(sc *StageContext) string {
	return fmt.Sprintf(`Research this HR manager's company based on their profile.

HR MANAGER PROFILE:
%s

Cover: company overview, recent news, culture signals, current hiring trends,
strategic priorities, one unique angle a candidate could use in outreach.
If live data unavailable, reason from context and industry knowledge.`, sc.Outputs[StageProfileSummary])
}

func evaluatorPrompt(sc *StageContext) string {
	return fmt.Sprintf(`%s

HR MANAGER PROFILE:
%s

COMPANY RESEARCH:
%s

Evaluate: skills alignment, experience relevance, culture fit, gaps,
unique value proposition, fit score 1-10 with justification.`,
		sc.ResumeBlock, sc.Outputs[StageProfileSummary], sc.Outputs[StageDeepResearch])
}

func strategistPrompt(sc *StageContext) string {
	return fmt.Sprintf(`You are helping THE CANDIDATE write a message TO the HR manager.
THE CANDIDATE is the sender. THE HR MANAGER is the recipient.

--- CANDIDATE'S BACKGROUND (the SENDER) ---
%s

--- HR MANAGER PROFILE (the RECIPIENT) ---
%s

--- COMPANY RESEARCH ---
%s

--- FITNESS EVALUATION ---
%s

Now produce:
1. ## APPROACH STRATEGY — 4 bullets on how the candidate should approach outreach
2. ## OUTREACH MESSAGE — the ready-to-send message from the candidate`,
		sc.ResumeBlock, sc.Outputs[StageProfileSummary],
		sc.Outputs[StageDeepResearch], sc.Outputs[StageFitnessEval])
}
