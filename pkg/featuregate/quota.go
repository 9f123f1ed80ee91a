package featuregate

import (
	"math"
	"net/http"
)

// DefaultBlockThreshold allows projected usage to overshoot the quota by 10%
// before uploads are blocked, so in-flight uploads near the limit can land.
const DefaultBlockThreshold = 1.10

// QuotaCheck holds the inputs to a storage quota evaluation. A zero
// Threshold means DefaultBlockThreshold. Negative pending uploads are
// treated as zero.
type QuotaCheck struct {
	UsageGB         float64
	QuotaGB         int
	PendingUploadGB float64
	Threshold       float64
}

// Evaluation is the outcome of a storage quota check. ShouldWarn flips as
// soon as projected usage reaches the quota; Allowed stays true until the
// projection exceeds quota multiplied by the threshold.
type Evaluation struct {
	QuotaGB          int     `json:"quota_gb"`
	CurrentUsageGB   float64 `json:"current_usage_gb"`
	PendingUploadGB  float64 `json:"pending_upload_gb"`
	ProjectedUsageGB float64 `json:"projected_usage_gb"`
	Threshold        float64 `json:"threshold"`
	ShouldWarn       bool    `json:"should_warn"`
	Allowed          bool    `json:"allowed"`
}

// EvaluateStorageQuota projects current usage plus pending uploads against
// the quota and reports whether the operation should warn or be blocked.
func EvaluateStorageQuota(check QuotaCheck) Evaluation {
	threshold := check.Threshold
	if threshold == 0 {
		threshold = DefaultBlockThreshold
	}
	pending := math.Max(check.PendingUploadGB, 0)
	projected := check.UsageGB + pending
	quota := float64(check.QuotaGB)

	return Evaluation{
		QuotaGB:          check.QuotaGB,
		CurrentUsageGB:   check.UsageGB,
		PendingUploadGB:  pending,
		ProjectedUsageGB: projected,
		Threshold:        threshold,
		ShouldWarn:       projected >= quota,
		Allowed:          projected <= quota*threshold,
	}
}

// AssertStorageQuota evaluates the check and returns an *Error when the
// projection exceeds the block threshold. The evaluation is returned in both
// cases so callers can surface warning state alongside the failure.
func AssertStorageQuota(check QuotaCheck, opts ...RequireOption) (Evaluation, error) {
	evaluation := EvaluateStorageQuota(check)
	if evaluation.Allowed {
		return evaluation, nil
	}

	gateErr := &Error{
		Code:    CodeStorageQuotaExceeded,
		Message: "Storage quota exceeded.",
		Status:  http.StatusForbidden,
		Detail: map[string]any{
			"quota_gb":          evaluation.QuotaGB,
			"usage_gb":          round2(evaluation.ProjectedUsageGB),
			"pending_upload_gb": round2(evaluation.PendingUploadGB),
			"threshold":         evaluation.Threshold,
		},
	}
	for _, opt := range opts {
		opt(gateErr)
	}
	return evaluation, gateErr
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
