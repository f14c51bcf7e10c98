// Package mcp exposes the abstract question-answering pipeline as MCP tools.
package mcp

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	// Question is the free-text question about cancer biology or genetics.
	Question string `json:"question" jsonschema:"The question to answer from the indexed PubMed abstracts"`
}

// AskQuestionOutput contains the answer and the abstracts it was drawn from.
type AskQuestionOutput struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Source is a retrieved chunk cited by an answer.
type Source struct {
	// Title is the display title, truncated to 150 characters.
	Title string `json:"title"`
	// ChunkIndex is the chunk's position within its abstract.
	ChunkIndex int `json:"chunk_index"`
	// Score is the cosine similarity to the question.
	Score float64 `json:"score"`
}

// SearchAbstractsInput defines the input parameters for the search_abstracts tool.
type SearchAbstractsInput struct {
	Query string `json:"query" jsonschema:"The semantic search query"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (1-20, default 3)"`
}

// SearchAbstractsOutput contains the search results.
type SearchAbstractsOutput struct {
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching abstracts found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match from semantic search.
type SearchResult struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the loaded index.
type StatusOutput struct {
	Backend        string   `json:"backend"`
	TotalChunks    int      `json:"total_chunks"`
	Dimension      int      `json:"dimension"`
	EmbeddingModel string   `json:"embedding_model"`
	ChatModel      string   `json:"chat_model"`
	Datasets       []string `json:"datasets"`
	TopK           int      `json:"top_k"`
	Healthy        bool     `json:"healthy"`
	HealthError    string   `json:"health_error,omitempty"`
}
