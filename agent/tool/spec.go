// Package tool defines the schema-validated operations the planner may
// select. Each workflow kind gets its own registry; validation is pure and
// deterministic, invocation is the only place the store is touched.
package tool

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// Bounds and closed sets shared by every registry.
const (
	MinFrequencyMHz = 10
	MaxFrequencyMHz = 6000
	MinThresholdDBm = -150
	MaxThresholdDBm = 150
)

var (
	SignalTypes = []string{"Energy", "5G", "LTE", "QPSK", "CW", "PCMPM", "CPM", "CPMFM", "BPSK", "SOQPSK"}
	Algorithms  = []string{"TDOA", "PDOA"}

	conditionTypes = []string{rulestore.ConditionSignalDetection, rulestore.ConditionSpectralEnergy}
	actionTypes    = []string{rulestore.ActionFrequencyScan, rulestore.ActionGeolocation, rulestore.ActionUserNotification}
)

type FieldKind string

const (
	FieldString     FieldKind = "string"
	FieldNumber     FieldKind = "number"
	FieldInt        FieldKind = "int"
	FieldBool       FieldKind = "bool"
	FieldObject     FieldKind = "object"
	FieldStringList FieldKind = "string list"
)

// FieldSpec declares one top-level parameter of a tool.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  any
	Min      *float64
	Max      *float64
	Enum     []string
	MinItems int
	Doc      string
}

// Spec is the full declaration of one tool. Check runs after the field
// pass and covers cross-field constraints. Role names the accumulator key
// a successful result is stored under.
type Spec struct {
	Name   string
	Doc    string
	Role   string
	Fields []FieldSpec
	Check  func(params map[string]any) error
}

// normalize round-trips params through JSON so every value lands in a
// canonical shape (float64 numbers, []any lists, map[string]any objects).
// Validation on a normalized map is idempotent.
func normalize(params map[string]any) (map[string]any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: parameters not serializable: %v", contractx.ErrValidation, err)
	}
	out := make(map[string]any, len(params))
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: parameters not serializable: %v", contractx.ErrValidation, err)
	}
	return out, nil
}

func (s Spec) validate(params map[string]any) (map[string]any, error) {
	out, err := normalize(params)
	if err != nil {
		return nil, err
	}

	// Drop anything the schema does not declare.
	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = true
	}
	for key := range out {
		if !known[key] {
			delete(out, key)
		}
	}

	for _, f := range s.Fields {
		val, present := out[f.Name]
		if !present || val == nil {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q", contractx.ErrValidation, f.Name)
			}
			delete(out, f.Name)
			continue
		}
		checked, err := f.check(val)
		if err != nil {
			return nil, err
		}
		out[f.Name] = checked
	}

	if s.Check != nil {
		if err := s.Check(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f FieldSpec) check(val any) (any, error) {
	switch f.Kind {
	case FieldString:
		str, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a string", contractx.ErrValidation, f.Name)
		}
		if strings.TrimSpace(str) == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: parameter %q cannot be empty", contractx.ErrValidation, f.Name)
			}
			return "", nil
		}
		if len(f.Enum) > 0 && !contains(f.Enum, str) {
			return nil, fmt.Errorf("%w: parameter %q must be one of %v", contractx.ErrValidation, f.Name, f.Enum)
		}
		return str, nil

	case FieldNumber, FieldInt:
		num, ok := val.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a number", contractx.ErrValidation, f.Name)
		}
		if f.Kind == FieldInt && num != float64(int64(num)) {
			return nil, fmt.Errorf("%w: parameter %q must be an integer", contractx.ErrValidation, f.Name)
		}
		if f.Min != nil && num < *f.Min {
			return nil, fmt.Errorf("%w: parameter %q must be >= %v", contractx.ErrValidation, f.Name, *f.Min)
		}
		if f.Max != nil && num > *f.Max {
			return nil, fmt.Errorf("%w: parameter %q must be <= %v", contractx.ErrValidation, f.Name, *f.Max)
		}
		return num, nil

	case FieldBool:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a boolean", contractx.ErrValidation, f.Name)
		}
		return b, nil

	case FieldObject:
		obj, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be an object", contractx.ErrValidation, f.Name)
		}
		return obj, nil

	case FieldStringList:
		list, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a list", contractx.ErrValidation, f.Name)
		}
		if len(list) < f.MinItems {
			return nil, fmt.Errorf("%w: parameter %q needs at least %d items", contractx.ErrValidation, f.Name, f.MinItems)
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				return nil, fmt.Errorf("%w: parameter %q must contain only strings", contractx.ErrValidation, f.Name)
			}
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: parameter %q has unsupported kind %q", contractx.ErrValidation, f.Name, f.Kind)
}

// checkConditionParams validates condition parameters in place for the given
// condition type. Frequency span defaults are applied when absent.
func checkConditionParams(condType string, params map[string]any) error {
	if params == nil {
		return fmt.Errorf("%w: condition parameters are required", contractx.ErrValidation)
	}
	if _, ok := params["minFrequencyMHz"]; !ok {
		params["minFrequencyMHz"] = float64(MinFrequencyMHz)
	}
	if _, ok := params["maxFrequencyMHz"]; !ok {
		params["maxFrequencyMHz"] = float64(MaxFrequencyMHz)
	}

	minFreq, err := numberParam(params, "minFrequencyMHz")
	if err != nil {
		return err
	}
	maxFreq, err := numberParam(params, "maxFrequencyMHz")
	if err != nil {
		return err
	}
	if minFreq < MinFrequencyMHz || minFreq > MaxFrequencyMHz || maxFreq < MinFrequencyMHz || maxFreq > MaxFrequencyMHz {
		return fmt.Errorf("%w: frequencies must be between %d and %d MHz", contractx.ErrValidation, MinFrequencyMHz, MaxFrequencyMHz)
	}
	if minFreq >= maxFreq {
		return fmt.Errorf("%w: minFrequencyMHz must be less than maxFrequencyMHz", contractx.ErrValidation)
	}

	switch condType {
	case rulestore.ConditionSignalDetection:
		sig, ok := params["signalType"].(string)
		if !ok || sig == "" {
			return fmt.Errorf("%w: missing required condition parameter signalType", contractx.ErrValidation)
		}
		if !contains(SignalTypes, sig) {
			return fmt.Errorf("%w: signalType must be one of %v", contractx.ErrValidation, SignalTypes)
		}
	case rulestore.ConditionSpectralEnergy:
		threshold, err := numberParam(params, "threshold_dBm")
		if err != nil {
			return fmt.Errorf("%w: missing required condition parameter threshold_dBm", contractx.ErrValidation)
		}
		if threshold < MinThresholdDBm || threshold > MaxThresholdDBm {
			return fmt.Errorf("%w: threshold_dBm must be between %d and %d", contractx.ErrValidation, MinThresholdDBm, MaxThresholdDBm)
		}
	default:
		return fmt.Errorf("%w: condition_type must be one of %v", contractx.ErrValidation, conditionTypes)
	}
	return nil
}

func checkActionParams(actType string, params map[string]any) error {
	if params == nil {
		return fmt.Errorf("%w: action parameters are required", contractx.ErrValidation)
	}
	switch actType {
	case rulestore.ActionFrequencyScan:
		if err := sensorList(params, 1); err != nil {
			return err
		}
	case rulestore.ActionGeolocation:
		algo, ok := params["algorithm"].(string)
		if !ok || algo == "" {
			return fmt.Errorf("%w: missing required action parameter algorithm", contractx.ErrValidation)
		}
		if !contains(Algorithms, algo) {
			return fmt.Errorf("%w: algorithm must be one of %v", contractx.ErrValidation, Algorithms)
		}
		if err := sensorList(params, 2); err != nil {
			return err
		}
	case rulestore.ActionUserNotification:
		msg, ok := params["message"].(string)
		if !ok || strings.TrimSpace(msg) == "" {
			return fmt.Errorf("%w: notification message cannot be empty", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: action_type must be one of %v", contractx.ErrValidation, actionTypes)
	}
	return nil
}

// checkTimeWindow parses any present timestamp and enforces
// start_time < end_time when both are given. Timestamps are RFC 3339.
func checkTimeWindow(params map[string]any) error {
	var start, end *time.Time
	if raw, ok := params["start_time"].(string); ok && raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("%w: invalid start_time: %v", contractx.ErrValidation, err)
		}
		start = &t
	}
	if raw, ok := params["end_time"].(string); ok && raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("%w: invalid end_time: %v", contractx.ErrValidation, err)
		}
		end = &t
	}
	if start != nil && end != nil && !start.Before(*end) {
		return fmt.Errorf("%w: start_time must be before end_time", contractx.ErrValidation)
	}
	return nil
}

func numberParam(params map[string]any, key string) (float64, error) {
	num, ok := params[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: parameter %q must be a number", contractx.ErrValidation, key)
	}
	return num, nil
}

func sensorList(params map[string]any, minItems int) error {
	list, ok := params["sensorIds"].([]any)
	if !ok || len(list) < minItems {
		return fmt.Errorf("%w: sensorIds must be a list with at least %d sensors", contractx.ErrValidation, minItems)
	}
	return nil
}

func contains(set []string, val string) bool {
	for _, s := range set {
		if s == val {
			return true
		}
	}
	return false
}

func bound(v float64) *float64 { return &v }
