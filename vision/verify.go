package vision

import (
	"context"
	"fmt"

	"github.com/veriyield/neuralchain/llm"
)

// Verification is the outcome of a sustainability photo audit.
type Verification struct {
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

const auditorPrompt = `You are an Agricultural Auditor. The user claims to practice: '%[1]s'.
Analyze this field image.

1. If you see evidence of %[1]s (e.g., drip pipes, straw mulch, crop residue), return "verified": true.
2. If the image contradicts the claim (e.g., flooded field when claiming Drip), return "verified": false.

Return JSON:
{
    "verified": boolean,
    "confidence": float (0-100),
    "evidence": "Describe what you see that supports or rejects the claim."
}`

// VerifyPractice checks a field photo against a claimed practice such as
// "No-Till" or "Drip". Any failure yields an unverified result whose
// evidence carries the reason.
func (c *Classifier) VerifyPractice(ctx context.Context, image []byte, claim string) Verification {
	reply, err := c.ask(ctx, fmt.Sprintf(auditorPrompt, claim), image, 0)
	if err != nil {
		c.logger.Error("Practice audit failed", "claim", claim, "error", err)
		return Verification{Evidence: "Audit unavailable: " + err.Error()}
	}

	var v Verification
	if err := llm.DecodeJSON(reply, &v); err != nil {
		c.logger.Error("Failed to parse audit reply", "claim", claim, "error", err)
		return Verification{Evidence: "Audit reply unreadable"}
	}
	return v
}
