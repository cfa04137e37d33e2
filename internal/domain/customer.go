package domain

import (
	"fmt"
	"net/mail"
)

type Customer struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
}

func (c *Customer) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if err := ValidateName(c.Surname); err != nil {
		return fmt.Errorf("surname: %w", err)
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return fmt.Errorf("invalid email %q", c.Email)
	}
	return nil
}

// Attribute is a free-form named field that can be attached to customers or rents.
type Attribute struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type AttributeValue struct {
	OwnerID   int64     `json:"owner_id"`
	Attribute Attribute `json:"attribute"`
	Value     string    `json:"value"`
}
