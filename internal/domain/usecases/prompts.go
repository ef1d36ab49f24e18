package usecases

import (
	"strings"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// supervisorInstructions asks the classifier for a FACT/META decision and, for META,
// for MAP and REDUCE instructions that the meta executor runs verbatim.
const supervisorInstructions = `You supervise the generation of prompts for analysing a corpus of documents stored in a document database. Your task is:
1. Decide whether the input question is a factual question that can be answered from one or a few chunks of the documents. If so, answer with the single word 'FACT'.
2. If the input is not a factual question but a question about the documents themselves, answer 'META'. Then write a MAP prompt that can be applied to every text chunk of the corpus independently, and a REDUCE prompt that is applied to the concatenated outputs of the MAP prompt to produce the answer to the input question.

Begin the answer with META or FACT and do not add any introduction.

Examples, each prompt followed by the expected answer:
{'Prompt': 'What was the contribution of John Miller?', 'FACT'}
{'Prompt': 'Thank you!', 'FACT'}
{'Prompt': 'In which month was the law passed?', 'FACT'}
{'Prompt': 'How many documents does the corpus contain?', 'META
MAP: Check whether the context is the beginning of a document, for instance because it contains a title or a document header. If so, write 'Yes' into the output.
REDUCE: Count how many times 'Yes' appears in the input and output this number.'}
{'Prompt': 'Which media have been discussing this issue?', 'META
MAP: Check whether the context mentions any media related to the issue in the chat. If so, list the media.
REDUCE: Output a list of the media discussing this issue. Remove duplicates.'}
{'Prompt': 'Which authors are mentioned?', 'META
MAP: List all authors mentioned in the text chunk.
REDUCE: Combine the authors of all chunks into a single list without duplicates, bringing all names into the same standard form.'}

Input question:
`

// buildSupervisorPrompt joins the instructions and the question and flattens newlines,
// so the prompt reaches the model as a single line.
func buildSupervisorPrompt(question string) string {
	return strings.ReplaceAll(strings.TrimSpace(supervisorInstructions+" "+question), "\n", " ")
}

const qaInstructions = `You are a helpful AI assistant. Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say you don't know. Do not try to make up an answer.
If the question is not related to the context, politely respond that you can only answer questions about the documents.`

// buildQAPrompt assembles the single retrieval-QA prompt of the fact path.
func buildQAPrompt(question string, history entities.History, chunks []entities.Chunk) string {
	var sb strings.Builder
	sb.WriteString(qaInstructions)
	sb.WriteString("\n\n")

	if len(history) > 0 {
		sb.WriteString("Chat history:\n")
		for _, turn := range history {
			sb.WriteString("Human: ")
			sb.WriteString(turn.Question)
			sb.WriteString("\nAssistant: ")
			sb.WriteString(turn.Answer)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Context:\n")
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	sb.WriteString(strings.Join(parts, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nHelpful answer in markdown:")
	return sb.String()
}
