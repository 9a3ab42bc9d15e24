package oracle

import (
	"bytes"
	"fmt"
	"text/template"
)

const formatting = `Use Markdown: bold key terms, use lists where they help, and wrap all math in ` + "`code blocks`" + `. Keep it short and simple.`

var systemPrompts = map[Purpose]string{
	PurposeExplain:  `You are a patient teacher. Your task is to EXPLAIN one concept to a learner. ` + formatting + ` End by asking if the learner understands.`,
	PurposePractice: `You are a friendly tutor. The learner has just read an explanation of a concept. Your task is to GUIDE them through one simple interactive example. ` + formatting + ` End with exactly one question for the learner to answer.`,
	PurposeAssess:   `You are an examiner. Your task is to check whether the learner has mastered a concept. ` + formatting + ` Ask exactly one direct question with a single correct answer. Do not give hints or the answer.`,
	PurposeSummary:  `You are an encouraging tutor. The learner just mastered a concept. ` + formatting,
	PurposeComplete: `You are an encouraging tutor. The learner just finished a whole learning path. ` + formatting,
}

const judgeSystemPrompt = `You are an examiner grading one answer from a learner.

Instructions:
- Decide whether the answer is correct. Accept equivalent forms (2/4 and 1/2, x=4 and 4).
- An answer that is partially right or missing its key step is not correct.
- Write feedback as one or two short, encouraging sentences addressed to the learner.
- When the answer is wrong, point toward the mistake without revealing the full solution.
- Respond ONLY with a JSON object: {"is_correct": boolean, "feedback": string}.`

var userTemplates = map[Purpose]*template.Template{
	PurposeExplain: template.Must(template.New("explain").Parse(`Concept: {{.Skill.Name}}
{{- with .Skill.Subject}}
Subject: {{.}}{{end}}
{{- with .Skill.ExplainSeed}}
Cover this: {{.}}{{end}}
{{- if .Struggled}}

The learner just answered a question on this concept incorrectly.
{{- with .Feedback}} The grader said: {{.}}{{end}}
Explain it again from a different angle with a fresh worked example.{{end}}`)),

	PurposePractice: template.Must(template.New("practice").Parse(`Concept: {{.Skill.Name}}
{{- with .Skill.PracticeSeed}}
Practice idea: {{.}}{{end}}`)),

	PurposeAssess: template.Must(template.New("assess").Parse(`Concept: {{.Skill.Name}}
{{- with .Skill.AssessSeed}}
Assessment idea: {{.}}{{end}}`)),

	PurposeSummary: template.Must(template.New("summary").Parse(`The learner just mastered "{{.Skill.Name}}".
{{- with .Next}}
Briefly congratulate them and introduce the next topic: "{{.Name}}". Explain why it is the next logical step. End by asking if they are ready to continue.
{{- else}}
Briefly congratulate them.{{end}}`)),

	PurposeComplete: template.Must(template.New("complete").Parse(`The final skill was "{{.Skill.Name}}". Congratulate the learner on completing the entire learning path and invite them to pick a new goal.`)),
}

var judgeTemplate = template.Must(template.New("judge").Parse(`Concept: {{.Skill.Name}}
Question type: {{.Kind}}
Question: {{.Text}}
Learner's answer: {{.Answer}}`))

func buildPrompt(p Prompt) (system, user string, err error) {
	system, ok := systemPrompts[p.Purpose]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt purpose %q", p.Purpose)
	}
	var buf bytes.Buffer
	if err := userTemplates[p.Purpose].Execute(&buf, p); err != nil {
		return "", "", err
	}
	return system, buf.String(), nil
}

func buildJudgeMessage(q Question) (string, error) {
	var buf bytes.Buffer
	if err := judgeTemplate.Execute(&buf, q); err != nil {
		return "", err
	}
	return buf.String(), nil
}
