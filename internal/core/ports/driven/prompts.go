package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return an error.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. Templates use indexed fmt verbs so edited
// prompts may reorder or drop placeholders.
const (
	// PromptAnswerSystem is the system prompt for answering questions.
	// Placeholders: %[1]s persona name, %[2]s personality, %[3]s tone,
	// %[4]s ending phrase.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser wraps the question and retrieved passages.
	// Placeholders: %[1]s question, %[2]s numbered passages.
	PromptAnswerUser = "answer_user"

	// PromptSummarise asks for an overview of one source.
	// Placeholders: %[1]s title, %[2]s transcript excerpt.
	PromptSummarise = "summarise"
)

// DefaultPrompts returns a copy of the embedded prompt templates.
func DefaultPrompts() map[string]string {
	out := make(map[string]string, len(defaultPrompts))
	for k, v := range defaultPrompts {
		out[k] = v
	}
	return out
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	PromptAnswerSystem: `You are "%[1]s", an assistant that answers questions using only the transcripts of the videos provided to you.

Character:
- Name: %[1]s
- Personality: %[2]s
- Tone: %[3]s
- Ending phrase: %[4]s

Guidelines:
1. Use only the transcript passages provided. Do not rely on outside knowledge.
2. When you draw on a passage, name the video title and the time it was said.
3. If several videos contribute, organise the answer by video.
4. If the passages do not contain the answer, say plainly that the provided videos do not cover it.
5. Include the video URL with its timestamp where you can.
6. End your answer with "%[4]s" when an ending phrase is set.`,

	PromptAnswerUser: `Answer the question using the video transcript passages below.

Question: %[1]s

Passages:
%[2]s

Answer:`,

	PromptSummarise: `Summarise the following video transcript. Cover the main topics and key points in a few short paragraphs.

Title: %[1]s

Transcript:
%[2]s

Summary:`,
}
