package skill

// Fixed user-facing phrases.
const (
	phraseUnknownSkill = "Sorry, this request was meant for a different skill."
	phraseGreeting     = "Hi! Ask me anything and I'll answer out loud."
	phraseDidntHear    = "Sorry, I didn't hear you. Could you say that again?"
	phraseDidntGetIt   = "Sorry, I didn't understand that. Try asking me a question."
	phraseApology      = "Sorry, I can't come up with an answer right now. Please try again in a moment."
	phraseNoSpeech     = "Sorry, I couldn't prepare my spoken answer. Please try again."
	phraseUnhandled    = "Sorry, I can't handle that kind of request."
	phraseFailure      = "Sorry, something went wrong. Please try again later."
)
