package rag

// State is a step of a single Ask call.
type State int

const (
	StateIdle State = iota
	StateEmbedding
	StateRetrieving
	StateSynthesizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEmbedding:
		return "embedding"
	case StateRetrieving:
		return "retrieving"
	case StateSynthesizing:
		return "synthesizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is told about every state change, including the final one.
type Observer func(from, to State)
