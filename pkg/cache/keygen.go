package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Sherin-SEF-AI/llm-router/pkg/types"
)

// Fingerprint derives a cache key from everything that affects output
// determinism: model, prompt or messages, and generation parameters. The
// serving provider is deliberately excluded so identical requests share an
// entry regardless of which upstream answered first.
func Fingerprint(req *types.Request) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "model:%s", req.Model)

	if len(req.Messages) > 0 {
		data, err := json.Marshal(req.Messages)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "|messages:%s", data)
	} else {
		fmt.Fprintf(&sb, "|prompt:%s", req.Prompt)
	}

	if req.Temperature != nil {
		fmt.Fprintf(&sb, "|temp:%.4f", *req.Temperature)
	}
	if req.MaxTokens > 0 {
		fmt.Fprintf(&sb, "|max_tokens:%d", req.MaxTokens)
	}
	if req.TopP != nil {
		fmt.Fprintf(&sb, "|top_p:%.4f", *req.TopP)
	}
	for _, stop := range req.Stop {
		fmt.Fprintf(&sb, "|stop:%s", stop)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return "llmrouter:" + hex.EncodeToString(sum[:]), nil
}
