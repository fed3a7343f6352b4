package models

// Field bounds shared by the create and update payloads.
const (
	MaxCardIDLength   = 100
	MaxCardNameLength = 120
	MaxGradeLength    = 20
	MaxQuantity       = 999
	MaxPurchasePrice  = 1_000_000
)

// CreateHoldingRequest is the body of POST /api/holdings. Pointers mark
// numeric fields as required without treating 0 as missing.
type CreateHoldingRequest struct {
	CardID        string   `json:"cardId" binding:"required,max=100"`
	CardName      string   `json:"cardName" binding:"required,max=120"`
	SetName       string   `json:"setName" binding:"required,max=120"`
	Grade         *string  `json:"grade" binding:"omitempty,grade"`
	PurchasePrice *float64 `json:"purchasePrice" binding:"required,gte=0,lte=1000000"`
	Quantity      *int     `json:"quantity" binding:"required,gte=1,lte=999"`
}

// Holding builds the row to insert for owner. Call after validation.
func (r CreateHoldingRequest) Holding(ownerID string) Holding {
	return Holding{
		OwnerID:       ownerID,
		CardID:        r.CardID,
		CardName:      r.CardName,
		SetName:       r.SetName,
		Grade:         NormalizeGrade(r.Grade),
		PurchasePrice: *r.PurchasePrice,
		Quantity:      *r.Quantity,
	}
}

// UpdateHoldingRequest is the body of PATCH /api/holdings/:id. A nil
// field was not sent (or sent as null) and is left untouched.
type UpdateHoldingRequest struct {
	Quantity      *int     `json:"quantity" binding:"omitempty,gte=1,lte=999"`
	PurchasePrice *float64 `json:"purchasePrice" binding:"omitempty,gte=0,lte=1000000"`
}

// Fields returns the column assignments for the fields present in the
// request. An empty map means there is nothing to update.
func (r UpdateHoldingRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 2)
	if r.Quantity != nil {
		fields["quantity"] = *r.Quantity
	}
	if r.PurchasePrice != nil {
		fields["purchase_price"] = *r.PurchasePrice
	}
	return fields
}

// HasChanges reports whether at least one field was provided.
func (r UpdateHoldingRequest) HasChanges() bool {
	return r.Quantity != nil || r.PurchasePrice != nil
}

// HoldingResponse wraps a single holding for create/update responses
type HoldingResponse struct {
	Holding Holding `json:"holding"`
}
