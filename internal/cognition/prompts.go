package cognition

const categorizePrompt = `You are a memory categorization system. Categorize the following text.

Pick the best-fitting primary category: "question", "issue", "education", "technical", or "general".
Pick an optional secondary category (one word) and up to five topical tags.
Rate your confidence between 0 and 1.

Respond ONLY with JSON, no markdown fences:
{"primary":"technical","secondary":"deployment","tags":["ci","release"],"confidence":0.85}

Text:
%s`

const extractBeliefsPrompt = `You are a belief extraction system. Analyze the following text and extract the declarative beliefs it supports.

For each belief:
- statement: a single declarative sentence, at most 300 characters
- confidence: how strongly the text supports it, between 0 and 1
- polarity: "positive" if the statement asserts something, "negative" if it denies something

Respond ONLY with a JSON array. No markdown, no explanation. Example:
[{"statement":"The deploy pipeline runs nightly","confidence":0.9,"polarity":"positive"}]

If no beliefs can be extracted, respond with an empty array: []

Text:
%s`

const synthesizePrompt = `These two statements are in tension. Produce a single statement that reconciles them, keeping whatever both agree on and qualifying the rest.

Statement A: %s
Statement B: %s

Respond with ONLY the merged statement. One sentence, no explanation.`
