package engine

// Canned bot messages. Prompt wording for the model backends lives in the llm
// package; these cover the paths the engine answers on its own.
const (
	msgWelcome = "Welcome. I'm here to ask a few questions about your health before your appointment. Let's start."

	msgNoQuestions = "No questions are configured for this session. There is nothing to ask right now."

	msgSessionEnded = "This session has ended. Thank you again for your time."

	msgEmptyAnswer = "I didn't catch an answer there. Could you type a reply to the question above?"

	msgAnswerAccepted = "Okay, thank you for that information."

	msgMoveOn = "Thank you for the information. Let's move on to the next point for now; your doctor can discuss this with you in more detail."

	msgSummaryIntro = "Here is a summary of our conversation:\n\n"

	msgClosing = "Thank you for providing your information. The consultation can now begin."
)
