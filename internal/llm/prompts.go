package llm

import (
	"fmt"
	"strings"

	"anamneseai/internal/model"
)

const evalSystemPrompt = `You are a medical intake assistant evaluating whether a patient's answer covers the required information for a pre-consultation questionnaire. You never diagnose and you never judge the medical content, only whether the listed criteria are covered. Return ONLY valid JSON.`

const guidanceSystemPrompt = `You are a friendly medical intake assistant talking directly to a patient. You write one short, empathetic follow-up message. Never diagnose, never alarm the patient, never mention internal scoring.`

const summarySystemPrompt = `You are a medical intake assistant writing a structured summary of a completed pre-consultation interview for the treating clinician. Be factual and concise; report only what the patient said. Return ONLY valid JSON.`

func buildEvalPrompt(q *model.Question, answer string, history []model.Exchange) string {
	criteria := make([]string, 0, len(q.Criteria))
	for i, c := range q.Criteria {
		criteria = append(criteria, fmt.Sprintf("%d. %s", i+1, c))
	}

	historyStr := ""
	if len(history) > 0 {
		var sb strings.Builder
		sb.WriteString("\nEarlier attempts at this question:\n")
		for _, ex := range history {
			sb.WriteString(fmt.Sprintf("- Patient said: %q\n", ex.Answer))
			if ex.Guidance != "" {
				sb.WriteString(fmt.Sprintf("  You replied: %q\n", ex.Guidance))
			}
		}
		sb.WriteString("Judge the latest answer together with these earlier attempts: information already given counts as covered.\n")
		historyStr = sb.String()
	}

	return fmt.Sprintf(`Evaluate the patient's answer. Return ONLY valid JSON matching this schema:
{
  "is_sufficient": true or false,
  "score": 0.0 to 1.0,
  "feedback": "one short sentence for the patient",
  "missing_criteria": ["criteria from the list below that are not covered"],
  "reasoning": "one or two sentences explaining the verdict"
}

Question: %s

Criteria the answer must cover:
%s
%s
Latest answer: %q

An answer is sufficient when every criterion is covered. "missing_criteria" must quote entries from the criteria list verbatim and must be empty when is_sufficient is true.`,
		q.Prompt, strings.Join(criteria, "\n"), historyStr, answer)
}

func buildGuidancePrompt(q *model.Question, missingCriteria []string, answer string, retriesRemaining int) string {
	attemptNote := fmt.Sprintf("The patient has %d attempts left for this question.", retriesRemaining)
	if retriesRemaining == 1 {
		attemptNote = "This is the patient's last attempt for this question; gently make clear this is the final chance to add detail."
	}

	return fmt.Sprintf(`The patient's answer did not cover everything the clinician needs.

Question asked: %s
Patient's answer: %q
Information still missing:
- %s

%s

Write ONE short follow-up message (2-3 sentences, plain text, no JSON, no lists) that thanks the patient, asks specifically for the missing information and restates the question naturally.`,
		q.Prompt, answer, strings.Join(missingCriteria, "\n- "), attemptNote)
}

func buildSummaryPrompt(records []model.QuestionRecord, meta model.SessionMetadata) string {
	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("\nQuestion [%s]: %s\n", rec.QuestionID, rec.Prompt))
		for i, answer := range rec.Answers {
			sb.WriteString(fmt.Sprintf("  Answer %d: %q\n", i+1, answer))
		}
		if rec.Abandoned {
			sb.WriteString("  (The patient did not give a sufficient answer; the question was abandoned.)\n")
		}
	}

	return fmt.Sprintf(`Summarize this completed patient intake interview. Return ONLY valid JSON matching this schema:
{
  "narrative": "3-6 sentence clinical narrative of what the patient reported",
  "key_findings": ["short bullet", "short bullet"],
  "questions": [{"question_id": "id from the transcript", "summary": "one sentence per question"}]
}

The interview covered %d of %d questions.
Transcript:
%s
Report only what the patient actually said. Mark abandoned questions as unresolved in their per-question summary. Do not diagnose.`,
		meta.AnsweredCount, meta.QuestionCount, sb.String())
}
