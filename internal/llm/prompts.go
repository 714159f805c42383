package llm

// Prompt templates for the Ollama reasoner. Responses are parsed
// defensively; any surprise falls back to the heuristic path.
const (
	classifyPromptTmpl = `Classify this search request as either "expert" (looking for a person with named expertise) or "project" (staffing a project or initiative).

Request: %s

Answer with the single word expert or project.`

	enhancePromptTmpl = `Rewrite the following expert search query %d different ways, keeping the meaning. One rewrite per line, no numbering, no commentary.

Query: %s`

	keywordsPromptTmpl = `Extract the most important search keywords from this expert search query. Output only the keywords, comma separated, most important first, at most 15.

Query: %s`

	rankPromptTmpl = `You are ranking expert candidates for the query below. Reply with the candidate numbers in order of relevance, best first, comma separated (e.g. 3,1,2). Reply with numbers only.

Query: %s

Candidates:
%s`

	profilePromptTmpl = `Describe in 2-3 sentences the ideal expert profile for this project: the skills, seniority, and experience they should have.

Project: %s`
)
