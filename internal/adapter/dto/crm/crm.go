package crm

// SubmitLeadRequest is the public intake form
type SubmitLeadRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Company     string `json:"company" validate:"required,min=1,max=255"`
	Stage       string `json:"stage" validate:"omitempty,oneof=pre-seed seed series-a series-b growth"`
	RaiseAmount *int64 `json:"raise_amount,omitempty" validate:"omitempty,gte=0"`
	Message     string `json:"message" validate:"max=5000"`
	Source      string `json:"source" validate:"max=100"`
}

// SubmitLeadResponse acknowledges a lead
type SubmitLeadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
