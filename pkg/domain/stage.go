package domain

import dErrors "krishichain/pkg/domain-errors"

// Stage is one step in the fixed custody order. A product moves strictly
// forward through the chain, one stage at a time, and never regresses:
//
//	farmer -> distributor -> retailer -> customer
//
// StageCustomer is terminal.
type Stage string

const (
	StageFarmer      Stage = "farmer"
	StageDistributor Stage = "distributor"
	StageRetailer    Stage = "retailer"
	StageCustomer    Stage = "customer"
)

// stageOrder is the authoritative transition table. Each stage maps to its
// position in the chain; a transition is legal only between adjacent
// positions, in ascending order.
var stageOrder = map[Stage]int{
	StageFarmer:      0,
	StageDistributor: 1,
	StageRetailer:    2,
	StageCustomer:    3,
}

// stageRoles maps each stage to the role authorized to record it.
var stageRoles = map[Stage]Role{
	StageFarmer:      RoleFarmer,
	StageDistributor: RoleDistributor,
	StageRetailer:    RoleRetailer,
	StageCustomer:    RoleCustomer,
}

// Stages returns the full custody order, first to last.
func Stages() []Stage {
	return []Stage{StageFarmer, StageDistributor, StageRetailer, StageCustomer}
}

// IsValid reports whether the stage is part of the custody order.
func (s Stage) IsValid() bool {
	_, ok := stageOrder[s]
	return ok
}

func (s Stage) String() string { return string(s) }

// Next returns the immediate successor stage. ok is false at the terminal
// stage.
func (s Stage) Next() (Stage, bool) {
	pos, known := stageOrder[s]
	if !known {
		return "", false
	}
	for stage, p := range stageOrder {
		if p == pos+1 {
			return stage, true
		}
	}
	return "", false
}

// CanAdvanceTo reports whether target is the immediate successor of s.
// Skipping, repeating and going backward are all illegal.
func (s Stage) CanAdvanceTo(target Stage) bool {
	next, ok := s.Next()
	return ok && next == target
}

// Terminal reports whether the stage has no successor.
func (s Stage) Terminal() bool {
	_, ok := s.Next()
	return !ok
}

// RequiredRole returns the role a participant must hold to record the stage.
func (s Stage) RequiredRole() Role { return stageRoles[s] }

// ParseStage constructs a Stage from external input.
// Errors: CodeInvalidInput when the value is empty or not part of the order.
func ParseStage(v string) (Stage, error) {
	if v == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "stage cannot be empty")
	}
	s := Stage(v)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown stage: "+v)
	}
	return s, nil
}
