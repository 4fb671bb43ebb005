package library

// Customer is a registered borrower. It is immutable once registered.
type Customer struct {
	ID    CustomerID `json:"customer_id" validate:"gt=0"`
	Name  string     `json:"name" validate:"required"`
	Email string     `json:"email" validate:"omitempty,email"`
	Phone string     `json:"phone" validate:"omitempty,max=32"`
}

// BuildCustomer is a factory method for Customer that validates the input.
func BuildCustomer(id CustomerID, name string, email string, phone string) (Customer, error) {
	customer := Customer{
		ID:    id,
		Name:  name,
		Email: email,
		Phone: phone,
	}

	if err := Validate(customer); err != nil {
		return Customer{}, err
	}

	return customer, nil
}
