// Package validation checks host input (nodes, ports, proposals, patches and
// configuration) before it reaches the layout or the registry.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput wraps every error returned by this package.
var ErrInvalidInput = errors.New("invalid input")

const (
	MaxIDLength       = 128
	MaxDataTypeLength = 64
	MaxTextLength     = 1024
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// "finite" rejects NaN and ±Inf on float fields.
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Float64 && fl.Field().Kind() != reflect.Float32 {
			return false
		}
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// NodeRequest is a host node declaration.
type NodeRequest struct {
	ID     string  `json:"id" validate:"required,max=128"`
	X      float64 `json:"x" validate:"finite"`
	Y      float64 `json:"y" validate:"finite"`
	Width  float64 `json:"width" validate:"finite,gte=0"`
	Height float64 `json:"height" validate:"finite,gte=0"`
}

// PortRequest is a host port declaration.
type PortRequest struct {
	ID             string `json:"id" validate:"required,max=128"`
	NodeID         string `json:"nodeId" validate:"required,max=128"`
	Direction      string `json:"direction" validate:"required,oneof=input output"`
	DataType       string `json:"dataType" validate:"max=64"`
	Anchor         string `json:"anchor" validate:"required,oneof=top right bottom left"`
	MaxConnections int    `json:"maxConnections" validate:"gte=0"`
}

// ProposalRequest is a connection proposal.
type ProposalRequest struct {
	SourcePortID string `json:"sourcePortId" validate:"required,max=128"`
	TargetPortID string `json:"targetPortId" validate:"required,max=128"`
}

// PatchRequest carries the mutable connection fields; nil means unchanged.
type PatchRequest struct {
	Label     *string `json:"label" validate:"omitempty,max=1024"`
	Condition *string `json:"condition" validate:"omitempty,max=1024"`
	Status    *string `json:"status" validate:"omitempty,oneof=idle active error"`
	Style     *string `json:"style" validate:"omitempty,oneof=bezier straight orthogonal"`
}

// ValidateNode validates a node declaration.
func ValidateNode(n diagram.Node) error {
	return check(&NodeRequest{
		ID:     n.ID,
		X:      n.Position.X,
		Y:      n.Position.Y,
		Width:  n.Size.Width,
		Height: n.Size.Height,
	})
}

// ValidatePort validates a port declaration.
func ValidatePort(p diagram.Port) error {
	return check(&PortRequest{
		ID:             p.ID,
		NodeID:         p.NodeID,
		Direction:      string(p.Direction),
		DataType:       p.DataType,
		Anchor:         string(p.Anchor),
		MaxConnections: p.MaxConnections,
	})
}

// ValidateProposal checks that both port ids are present. Whether the ports
// exist is the connection validator's concern.
func ValidateProposal(p diagram.Proposal) error {
	return check(&ProposalRequest{SourcePortID: p.SourcePortID, TargetPortID: p.TargetPortID})
}

// ValidatePatch validates a connection update.
func ValidatePatch(req *PatchRequest) error {
	if req == nil {
		return fmt.Errorf("%w: patch cannot be nil", ErrInvalidInput)
	}
	return check(req)
}

func check(req any) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Report the first failing field.
	e := validationErrs[0]
	field, param := e.Field(), e.Param()
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%w: %s: field is required", ErrInvalidInput, field)
	case "max":
		return fmt.Errorf("%w: %s: must not exceed %s", ErrInvalidInput, field, param)
	case "gte":
		return fmt.Errorf("%w: %s: must be at least %s", ErrInvalidInput, field, param)
	case "oneof":
		return fmt.Errorf("%w: %s: %v is not one of [%s]", ErrInvalidInput, field, e.Value(), param)
	case "finite":
		return fmt.Errorf("%w: %s: must be a finite number", ErrInvalidInput, field)
	default:
		return fmt.Errorf("%w: %s: validation failed (%s)", ErrInvalidInput, field, e.Tag())
	}
}

// Struct validates any value carrying `validate` tags, including the
// package's custom "finite" tag.
func Struct(v any) error {
	return check(v)
}
