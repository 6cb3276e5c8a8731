package openai

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"

	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

const (
	sseDataPrefix = "data: "
	sseDone       = "[DONE]"
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *wireUsage `json:"usage"`
}

// sseStream reads "data: {json}" SSE lines from an OpenAI-compatible
// streaming response.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	usage   types.Usage

	closeOnce sync.Once
	closeErr  error
}

// Next returns the next non-empty content delta. The final usage frame is
// absorbed before io.EOF is returned.
func (s *sseStream) Next() (string, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || bytes.HasPrefix(line, []byte("event:")) {
			continue
		}
		if bytes.HasPrefix(line, []byte(sseDataPrefix)) {
			line = bytes.TrimPrefix(line, []byte(sseDataPrefix))
		}
		if bytes.Equal(line, []byte(sseDone)) {
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("unmarshal stream chunk: %w", err)
		}
		if chunk.Usage != nil {
			s.usage = types.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return "", io.EOF
}

// Usage returns the token usage reported by the final stream frame.
func (s *sseStream) Usage() types.Usage { return s.usage }

// Close releases the response body. Safe to call more than once.
func (s *sseStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
