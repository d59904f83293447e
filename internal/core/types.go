package core

import (
	"fmt"
	"strings"
	"time"
)

// StrategyStatus represents whether a strategy is in use
type StrategyStatus string

const (
	StrategyActive   StrategyStatus = "active"
	StrategyInactive StrategyStatus = "inactive"
)

// IsValid reports whether s is a known strategy status.
func (s StrategyStatus) IsValid() bool {
	return s == StrategyActive || s == StrategyInactive
}

// Strategy is a credit-risk strategy with its executable code.
type Strategy struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    *string        `json:"description"`
	SQLCode        *string        `json:"sql_code"`
	PythonCode     *string        `json:"python_code"`
	JavaScriptCode *string        `json:"javascript_code,omitempty"`
	Status         StrategyStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at"`
}

// StrategyInput carries create and update payloads. Nil fields are left
// untouched on update.
type StrategyInput struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	SQLCode        *string         `json:"sql_code"`
	PythonCode     *string         `json:"python_code"`
	JavaScriptCode *string         `json:"javascript_code"`
	Status         *StrategyStatus `json:"status"`
}

// ValidateCreate checks the fields required to create a strategy.
func (in StrategyInput) ValidateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return WrapError(ErrMissingField, fmt.Errorf("name is required"))
	}
	return in.validateCommon()
}

// ValidateUpdate checks the fields present in an update.
func (in StrategyInput) ValidateUpdate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return WrapError(ErrInvalidRequest, fmt.Errorf("name cannot be empty"))
	}
	return in.validateCommon()
}

func (in StrategyInput) validateCommon() error {
	if in.Name != nil && len(*in.Name) > 100 {
		return WrapError(ErrInvalidRequest, fmt.Errorf("name exceeds 100 characters"))
	}
	if in.Status != nil && !in.Status.IsValid() {
		return WrapError(ErrInvalidRequest, fmt.Errorf("unknown status %q", *in.Status))
	}
	return nil
}

// Apply copies the set fields of in onto s.
func (in StrategyInput) Apply(s *Strategy) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Description != nil {
		s.Description = in.Description
	}
	if in.SQLCode != nil {
		s.SQLCode = in.SQLCode
	}
	if in.PythonCode != nil {
		s.PythonCode = in.PythonCode
	}
	if in.JavaScriptCode != nil {
		s.JavaScriptCode = in.JavaScriptCode
	}
	if in.Status != nil {
		s.Status = *in.Status
	}
}

// BatchStatus is the lifecycle state of a test batch
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// CaseStatus is the lifecycle state of a single test case
type CaseStatus string

const (
	CasePending CaseStatus = "pending"
	CaseRunning CaseStatus = "running"
	CasePassed  CaseStatus = "passed"
	CaseFailed  CaseStatus = "failed"
	CaseError   CaseStatus = "error"
)

// IsTerminal reports whether the case has finished executing.
func (s CaseStatus) IsTerminal() bool {
	return s == CasePassed || s == CaseFailed || s == CaseError
}

// TestCase is one strategy execution within a batch.
type TestCase struct {
	ID             int64          `json:"id"`
	BatchID        int64          `json:"batch_id"`
	InputData      map[string]any `json:"input_data"`
	ExpectedOutput map[string]any `json:"expected_output"`
	ActualOutput   map[string]any `json:"actual_output"`
	Status         CaseStatus     `json:"status"`
	ErrorMessage   *string        `json:"error_message"`
	ExecutionTime  *int64         `json:"execution_time"` // milliseconds
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at"`
}

// TestBatch groups test cases run against one strategy.
type TestBatch struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	StrategyID  int64       `json:"strategy_id"`
	Status      BatchStatus `json:"status"`
	TestCases   []TestCase  `json:"test_cases"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at"`
}

// TestCaseInput is the payload for a new test case.
type TestCaseInput struct {
	InputData      map[string]any `json:"input_data"`
	ExpectedOutput map[string]any `json:"expected_output"`
}

// TestBatchInput is the payload for a new test batch.
type TestBatchInput struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	StrategyID  int64           `json:"strategy_id"`
	TestCases   []TestCaseInput `json:"test_cases"`
}

// Validate checks the batch payload.
func (in TestBatchInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return WrapError(ErrMissingField, fmt.Errorf("name is required"))
	}
	if len(in.Name) > 100 {
		return WrapError(ErrInvalidRequest, fmt.Errorf("name exceeds 100 characters"))
	}
	if in.StrategyID <= 0 {
		return WrapError(ErrMissingField, fmt.Errorf("strategy_id is required"))
	}
	for i, tc := range in.TestCases {
		if tc.InputData == nil {
			return WrapError(ErrMissingField, fmt.Errorf("test_cases[%d].input_data is required", i))
		}
	}
	return nil
}

// StrategyTestRequest is the body of a single ad-hoc strategy run.
type StrategyTestRequest struct {
	TestData map[string]any `json:"test_data"`
}
