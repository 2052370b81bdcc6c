package domain

// MinSessionTokenLength is the shortest runtime session id the agent runtime accepts.
const MinSessionTokenLength = 33

type SessionToken string

func (t SessionToken) Valid() bool {
	return len(t) >= MinSessionTokenLength
}
