package planner

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp/cmpopts"
)

// cmpResult compares the public JSON-facing fields of an ExecutionResult.
var cmpResult = cmpopts.IgnoreFields(ExecutionResult{}, "PlanID", "RunID", "Steps")

func jsonMarshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	return string(raw), err
}
