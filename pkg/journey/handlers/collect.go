package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// SubmissionRecorder persists raw data-collection submissions
// (Waitlist/ContactForm/Survey/Feedback policies, spec §3
// DataCollectionSettings).
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, tenantID, policyID, dedupeKey string, data map[string]any) (duplicate bool, err error)
}

// Collect implements a generic data-collection step: copies the declared
// input fields into journey_data and, when step.Config["persist"] is true,
// stores the submission via SubmissionRecorder, using
// step.Config["dedupe_fields"] to detect resubmission.
type Collect struct {
	Submissions SubmissionRecorder
}

const collectView = "_Collect"

func (h *Collect) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	fields := stepConfigStringSlice(ec.Step.Config, "fields")
	if len(fields) == 0 {
		return journey.Outcome{}, fmt.Errorf("collect: step config missing non-empty %q", "fields")
	}

	collected := make(map[string]any, len(fields))
	missing := false
	for _, f := range fields {
		v, ok := ec.UserInput[f]
		if !ok {
			missing = true
			continue
		}
		collected[f] = v
	}
	if missing {
		return journey.RequireInput(collectView, map[string]any{"fields": fields}), nil
	}

	if stepConfigBool(ec.Step.Config, "persist", false) {
		dedupeFields := stepConfigStringSlice(ec.Step.Config, "dedupe_fields")
		key := dedupeKey(dedupeFields, collected)

		duplicate, err := h.Submissions.RecordSubmission(ec.Context, ec.TenantID, ec.Step.ID, key, collected)
		if err != nil {
			return journey.Outcome{}, fmt.Errorf("collect: record submission: %w", err)
		}
		if duplicate {
			return journey.Fail("duplicate_submission", "a matching submission already exists"), nil
		}
	}

	return journey.Success(collected), nil
}

func dedupeKey(fields []string, data map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	sorted := append([]string{}, fields...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, f := range sorted {
		fmt.Fprintf(h, "%s=%v;", f, data[f])
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ journey.StepHandler = (*Collect)(nil)
