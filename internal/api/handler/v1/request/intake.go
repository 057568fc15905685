package request

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/intake"
)

const (
	ActionSelectPreset     = "select_preset"
	ActionEditCustomAmount = "edit_custom_amount"
	ActionContinue         = "continue"
	ActionBack             = "back"
	ActionSelectMethod     = "select_method"
	ActionEditField        = "edit_field"
	ActionSubmit           = "submit"
)

var (
	errMissingAmount = errors.New("amount is required for select_preset")
	errMissingMethod = errors.New("method is required for select_method")
	errMissingField  = errors.New("field is required for edit_field")
)

type StartIntakeRequest struct {
	CampaignID *uint `json:"campaign_id"`
}

// IntakeActionRequest is one donor interaction. Which of the other fields are
// read depends on Type.
type IntakeActionRequest struct {
	Type   string               `json:"type"`
	Amount *decimal.Decimal     `json:"amount,omitempty" swaggertype:"string"`
	Value  string               `json:"value,omitempty"`
	Method domain.PaymentMethod `json:"method,omitempty"`
	Field  string               `json:"field,omitempty"`
}

func (req *IntakeActionRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Type, validation.Required, validation.In(
			ActionSelectPreset, ActionEditCustomAmount, ActionContinue, ActionBack,
			ActionSelectMethod, ActionEditField, ActionSubmit,
		)),
	)
	if err != nil {
		return err
	}

	switch req.Type {
	case ActionSelectPreset:
		if req.Amount == nil {
			return errMissingAmount
		}
	case ActionSelectMethod:
		if req.Method == "" {
			return errMissingMethod
		}
	case ActionEditField:
		if req.Field == "" {
			return errMissingField
		}
	}

	return nil
}

// ToAction builds the intake action. identity is nil for anonymous donors.
func (req *IntakeActionRequest) ToAction(identity *domain.Identity) (intake.Action, error) {
	switch req.Type {
	case ActionSelectPreset:
		if req.Amount == nil {
			return nil, errMissingAmount
		}
		return intake.SelectPreset{Amount: *req.Amount}, nil
	case ActionEditCustomAmount:
		return intake.EditCustomAmount{Value: req.Value}, nil
	case ActionContinue:
		return intake.Continue{Identity: identity}, nil
	case ActionBack:
		return intake.Back{}, nil
	case ActionSelectMethod:
		return intake.SelectMethod{Method: req.Method}, nil
	case ActionEditField:
		return intake.EditField{Field: req.Field, Value: req.Value}, nil
	case ActionSubmit:
		return intake.Submit{Identity: identity}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", req.Type)
	}
}
