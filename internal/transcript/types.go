package transcript

// Role identifies the speaker of a turn. The set is closed: stored values
// carrying any other role are treated as corrupt.
type Role string

const (
	RoleInstruction Role = "instruction"
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleInstruction, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Turn is a single utterance in a conversation. Turns are append-only: a
// turn's role and content never change once it is part of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
