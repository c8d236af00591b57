package skill

// Kind is the branch a request is routed to.
type Kind int

const (
	KindUnclassified Kind = iota
	KindIdentityMismatch
	KindLaunchGreeting
	KindChatTurn
	KindUnknownIntent
	KindSessionEnd
	KindUnhandledType
)

func (k Kind) String() string {
	switch k {
	case KindIdentityMismatch:
		return "identity_mismatch"
	case KindLaunchGreeting:
		return "launch_greeting"
	case KindChatTurn:
		return "chat_turn"
	case KindUnknownIntent:
		return "unknown_intent"
	case KindSessionEnd:
		return "session_end"
	case KindUnhandledType:
		return "unhandled_type"
	default:
		return "unclassified"
	}
}

// Rules are the classifier settings.
type Rules struct {
	// ApplicationID is the expected skill id. Empty disables the check.
	ApplicationID string
	ChatIntent    string
}

// Classify routes a request. The identity check comes first and applies to
// every request type.
func Classify(env *RequestEnvelope, rules Rules) Kind {
	if env == nil {
		return KindUnclassified
	}
	if got := env.ApplicationID(); got != "" && rules.ApplicationID != "" && got != rules.ApplicationID {
		return KindIdentityMismatch
	}

	switch env.Request.Type {
	case TypeLaunch:
		return KindLaunchGreeting
	case TypeIntent:
		if env.Request.Intent.Name == rules.ChatIntent {
			return KindChatTurn
		}
		return KindUnknownIntent
	case TypeSessionEnded:
		return KindSessionEnd
	default:
		return KindUnhandledType
	}
}
