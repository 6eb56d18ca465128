// Package checkout turns a cart into a persisted order.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"homecook-api/cart"
	"homecook-api/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// DeliveryFee is the flat fee added to every order
const DeliveryFee = 60

var ErrEmptyCart = errors.New("cart is empty")

// Request carries the delivery fields the customer types in at checkout
type Request struct {
	Address       string               `json:"address" validate:"notblank,max=500"`
	Contact       string               `json:"contact" validate:"notblank,max=100"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=cash_on_delivery card line_pay"`
}

// PaymentMethods lists the accepted payment tags, default first
var PaymentMethods = []models.PaymentMethod{
	models.PaymentCashOnDelivery,
	models.PaymentCard,
	models.PaymentLinePay,
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}()

// FieldError names one rejected form field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned before anything leaves the process
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid checkout fields: " + strings.Join(names, ", ")
}

// Validate trims the request and checks every field
func (r Request) Validate() (Request, error) {
	r.Address = strings.TrimSpace(r.Address)
	r.Contact = strings.TrimSpace(r.Contact)
	if r.PaymentMethod == "" {
		r.PaymentMethod = models.PaymentCashOnDelivery
	}

	err := validate.Struct(r)
	if err == nil {
		return r, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return r, fmt.Errorf("validate checkout request: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return r, out
}

// BuildOrder flattens a cart snapshot into an order record. Money is
// recomputed from the lines; no total carried alongside the snapshot is
// trusted.
func BuildOrder(snapshot cart.Summary, req Request) (*models.Order, error) {
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line %s: %w", line.ID, cart.ErrInvalidQuantity)
		}
		price := decimal.NewFromFloat(line.Item.Price)
		total := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(total)
		items = append(items, models.OrderItem{
			MenuItemID: line.Item.ID,
			CookSpotID: line.Item.CookSpotID,
			Name:       line.Item.Name,
			Price:      price.InexactFloat64(),
			Quantity:   line.Quantity,
			Total:      total.Round(2).InexactFloat64(),
		})
	}

	fee := decimal.NewFromInt(DeliveryFee)
	return &models.Order{
		Items:         items,
		Address:       req.Address,
		Contact:       req.Contact,
		PaymentMethod: req.PaymentMethod,
		TotalPrice:    subtotal.Round(2).InexactFloat64(),
		DeliveryFee:   fee.InexactFloat64(),
		FinalAmount:   subtotal.Add(fee).Round(2).InexactFloat64(),
		Status:        models.StatusPending,
	}, nil
}
