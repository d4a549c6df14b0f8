package calculations

import (
	"github.com/deep60/nexus-security/types"
	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// AccuracyScore compares one submission's verdict against the resolved final
// verdict. A match scores 0.5 + confidence*0.5, so correct answers always
// land at or above 0.5 and scale with how confident the engine was. A
// mismatch scores flat zero: confidence only rewards correct calls.
func AccuracyScore(submissionVerdict types.Verdict, finalVerdict types.Verdict, confidence decimal.Decimal) decimal.Decimal {
	if submissionVerdict == finalVerdict {
		return half.Add(confidence.Mul(half))
	}
	return decimal.Zero
}
