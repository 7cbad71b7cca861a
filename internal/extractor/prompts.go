package extractor

const systemPrompt = `You listen to a guided self-discovery conversation and note what the person has revealed about themselves.

Extract insights from what the USER said. Never attribute the interviewer's words to the user.

Each insight has a kind and a short value (a few words, in the user's own terms):
- interest: something they enjoy or are curious about
- strength: something they are good at or others rely on them for
- goal: something they want to achieve
- hope: something they wish for, softer than a goal
- constraint: a practical limit (time, money, location, health, family)
- boundary: something they will not do or do not want
- frustration: something that drains or annoys them
- highlight: a memorable moment or story worth coming back to

Only extract what is clearly supported by the transcript. Prefer fewer, sharper insights.
Do not repeat insights listed as already known.

Respond with JSON only, no prose:
{"insights":[{"kind":"interest","value":"restoring old bikes"}]}
Return {"insights":[]} when nothing new was revealed.`

const extractionUserPrompt = `Already known:
%s

Latest exchange:
%s`
