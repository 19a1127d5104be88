package ai

import "fmt"

const assistantInstruction = "You are a thoughtful discussion partner. Help the user reason " +
	"through the topic, probe their arguments, and offer counterpoints. Do not tell them what " +
	"their final answer should be."

const judgeInstruction = "You are an impartial judge. You compare two independently written " +
	"conclusions on the same question. Weigh the reasoning of each fairly, name concrete " +
	"strengths and weaknesses, and state which conclusion is better supported and why. " +
	"Do not favor either author for style, length, or order of presentation."

// FrameFirstTurn builds the augmented prompt for the opening turn of a chat:
// the guiding question plus the user's own words. Only the transmitted copy
// of the history carries this framing; the stored message keeps the original
// text untouched.
func FrameFirstTurn(question, userText string) string {
	return fmt.Sprintf("The topic under discussion is: %q\n\n%s", question, userText)
}

func buildComparePrompt(req CompareRequest) string {
	return fmt.Sprintf(
		"Question under discussion: %q\n\n"+
			"Conclusion by %s:\n%s\n\n"+
			"Conclusion by %s:\n%s\n\n"+
			"Compare the two conclusions and deliver your verdict.",
		req.Question, req.NameA, req.TextA, req.NameB, req.TextB,
	)
}
